package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/outpost-tools/outpost-ctl/internal/config"
)

// TableFormatter formats environment status as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatEnvironment formats a single environment as a table row.
func (f *TableFormatter) FormatEnvironment(status *config.EnvironmentStatus) (string, error) {
	return f.FormatEnvironmentList([]*config.EnvironmentStatus{status})
}

// FormatEnvironmentList formats a list of environments as a table.
func (f *TableFormatter) FormatEnvironmentList(statuses []*config.EnvironmentStatus) (string, error) {
	if len(statuses) == 0 {
		return "No environments found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSTATE\tIMAGE\tENDPOINT\tAGE")
	}

	for _, status := range statuses {
		state := status.State
		if state == "" {
			state = "-"
		}
		if state == "failed" && status.FailedAt != "" {
			state = fmt.Sprintf("failed (%s)", status.FailedAt)
		}

		image := status.Image
		if image == "" {
			image = "-"
		}

		endpoint := "-"
		if status.Host != "" {
			endpoint = fmt.Sprintf("%s@%s:%d", status.User, status.Host, status.Port)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			status.Name, state, image, endpoint, status.Age())
	}

	_ = w.Flush()
	return buf.String(), nil
}
