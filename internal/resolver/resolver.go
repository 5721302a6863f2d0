// Package resolver maps declared base-image identifiers to concrete
// downloadable artifacts.
//
// The image index is an operator-maintained TOML file:
//
//	[[image]]
//	id = "base-10.04"
//
//	[[image.artifact]]
//	name = "base-10.04"
//	url = "https://images.example.com/base-10.04.img"
//	sha256 = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
//
// An image may declare several artifacts (base disk plus package bundles);
// the fetcher downloads them independently. Resolution is a pure lookup
// with no side effects.
package resolver

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
)

// ArtifactRef is a resolved, downloadable artifact: a named, versioned blob
// with a declared content checksum. The checksum must match before the
// artifact is used; mismatches are rejected, never substituted.
type ArtifactRef struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	SHA256 string `toml:"sha256"`
	Size   int64  `toml:"size"`
}

// ImageSpec is one entry in the image index.
type ImageSpec struct {
	ID        string        `toml:"id"`
	Artifacts []ArtifactRef `toml:"artifact"`
}

// Index is the parsed image index.
type Index struct {
	Images []ImageSpec `toml:"image"`
}

// Resolver resolves image identifiers against a loaded index.
type Resolver struct {
	byID map[string][]ArtifactRef
}

var sha256Regex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// supported URL schemes for artifact sources
var supportedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"s3":    true,
}

// Load reads and validates the image index from path.
func Load(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError("failed to read image index", err)
	}

	var index Index
	if err := toml.Unmarshal(data, &index); err != nil {
		return nil, errors.ConfigError("failed to parse image index", err)
	}

	return New(index)
}

// New builds a Resolver from an already-parsed index.
func New(index Index) (*Resolver, error) {
	byID := make(map[string][]ArtifactRef, len(index.Images))

	for _, img := range index.Images {
		if img.ID == "" {
			return nil, errors.ConfigError("image index entry is missing an id", nil)
		}
		if _, dup := byID[img.ID]; dup {
			return nil, errors.ConfigError(fmt.Sprintf("duplicate image id %q in index", img.ID), nil)
		}
		if len(img.Artifacts) == 0 {
			return nil, errors.ConfigError(fmt.Sprintf("image %q declares no artifacts", img.ID), nil)
		}

		refs := make([]ArtifactRef, len(img.Artifacts))
		for i, ref := range img.Artifacts {
			if ref.Name == "" {
				ref.Name = img.ID
			}
			if err := validateRef(img.ID, ref); err != nil {
				return nil, err
			}
			refs[i] = ref
		}
		byID[img.ID] = refs
	}

	return &Resolver{byID: byID}, nil
}

func validateRef(imageID string, ref ArtifactRef) error {
	u, err := url.Parse(ref.URL)
	if err != nil || !supportedSchemes[u.Scheme] {
		return errors.ConfigError(
			fmt.Sprintf("image %q artifact %q has unsupported url %q", imageID, ref.Name, ref.URL), nil)
	}
	if !sha256Regex.MatchString(ref.SHA256) {
		return errors.ConfigError(
			fmt.Sprintf("image %q artifact %q has invalid sha256 %q", imageID, ref.Name, ref.SHA256), nil)
	}
	return nil
}

// Resolve returns the artifact references for an image identifier.
// Unknown identifiers fail with UnresolvedImage.
func (r *Resolver) Resolve(imageID string) ([]ArtifactRef, error) {
	refs, ok := r.byID[imageID]
	if !ok {
		return nil, errors.UnresolvedImage(imageID)
	}

	logging.Debug("resolved image", "image", imageID, "artifacts", len(refs))

	out := make([]ArtifactRef, len(refs))
	copy(out, refs)
	return out, nil
}

// Images returns the known image identifiers, for diagnostics.
func (r *Resolver) Images() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
