package types

// Status is a type for the status of a resource in the database.
// Any changes to this type should be reflected in the database schema by running migrations
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// RunMode controls which deployment flavor the process runs as
type RunMode string

const (
	// ModeLocal is the local development mode
	ModeLocal RunMode = "local"
	// ModeSaaS is the multi-portal hosted deployment
	ModeSaaS RunMode = "saas"
	// ModeStandalone is the single-portal (self hosted) deployment
	ModeStandalone RunMode = "standalone"
)

// LogLevel is a type for the level of logging
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
