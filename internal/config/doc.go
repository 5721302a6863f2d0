// Package config handles descriptors, status files, and path layout for
// outpost-ctl.
//
// # Layout
//
// Operator-authored files live under the config dir, machine-written state
// under the state dir:
//
//	/etc/outpost/environments/<name>.toml      environment descriptors
//	/etc/outpost/images.toml                   image index (resolver input)
//	/var/lib/outpost/environments/<name>.status.json   orchestrator status
//	/var/lib/outpost/cache/                    artifact cache
//
// Both roots can be overridden with OUTPOST_CONFIG_DIR and
// OUTPOST_STATE_DIR.
//
// # Descriptors
//
// A descriptor declares the base image, resource requirements, connection
// parameters, and an ordered list of provisioning steps:
//
//	image = "base-10.04"
//
//	[resources]
//	disk_mb = 10240
//	memory_mb = 1024
//
//	[connection]
//	host = "127.0.0.1"
//	port = 2222
//	user = "outpost"
//
//	[[step]]
//	type = "package"
//	packages = ["curl", "git"]
//
//	[[step]]
//	type = "command"
//	command = "systemctl enable sshd"
//
// Descriptors are immutable during a run; they are re-read on every `up`.
package config
