// Package exitcode provides standardized exit codes for staticpush
package exitcode

// Exit codes for the staticpush CLI
const (
	Success          = 0
	GeneralError     = 1
	ConfigError      = 2
	ValidationError  = 3
	FileSystemError  = 4
	NetworkError     = 5
	BuildError       = 6
	BundleError      = 7
	StoreError       = 8
	NotConfirmed     = 9
	PartialPublished = 10
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ValidationError:
		return "Validation error"
	case FileSystemError:
		return "File system error"
	case NetworkError:
		return "Network error"
	case BuildError:
		return "Service build error"
	case BundleError:
		return "Bundle error"
	case StoreError:
		return "Store error"
	case NotConfirmed:
		return "Publish not confirmed"
	case PartialPublished:
		return "Publish partially failed"
	default:
		return "Unknown error"
	}
}
