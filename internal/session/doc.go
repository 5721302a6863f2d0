// Package session opens interactive sessions on provisioned environments.
//
// The Gateway wraps the environment's SSH endpoint. It distinguishes an
// environment that never answers (unreachable) from one that answers but
// rejects the credentials (authentication failure), because the two need
// different operator responses and different exit codes.
package session
