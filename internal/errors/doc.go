// Package errors provides typed errors with exit codes for outpost-ctl.
//
// # Error Types
//
// OutpostError is the base error type that wraps an error with an exit code:
//
//	type OutpostError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// Each failure kind the orchestrator can report maps to its own exit code:
//
//	ExitSuccess                = 0  // Success
//	ExitGeneralError           = 1  // General/unknown errors
//	ExitUnresolvedImage        = 2  // Image identifier not in the index
//	ExitIntegrityMismatch      = 3  // Artifact checksum verification failed
//	ExitFetchFailed            = 4  // Download failed after retries
//	ExitProvisioningFailed     = 5  // Provisioning step failed
//	ExitEnvironmentUnreachable = 6  // Environment never became reachable
//	ExitAuthenticationFailed   = 7  // SSH authentication rejected
//	ExitConfigError            = 8  // Descriptor or host configuration error
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.UnresolvedImage("base-10.04")
//	errors.IntegrityMismatch("base-10.04", want, got)
//	errors.ProvisioningFailed(3, "install package X", err)
//	errors.EnvironmentUnreachable("dev", err)
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
