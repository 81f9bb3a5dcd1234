package constants

// ValidationStatus is the canonical per-field validation outcome.
type ValidationStatus string

// Stable values (store these exact strings in DB).
const (
	ValidationPassed  ValidationStatus = "passed"  // schema check ran and passed
	ValidationFailed  ValidationStatus = "failed"  // schema check ran and failed
	ValidationSkipped ValidationStatus = "skipped" // value absent, check not attempted
)
