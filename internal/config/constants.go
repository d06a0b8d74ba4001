package config

const (
	// DefaultDatabasePath is the default path for the gallery database
	DefaultDatabasePath = "./gallery.db"

	// DefaultMaxConcurrencyRetries is the number of retries after the first
	// conflicting flush, so a save makes at most 11 attempts.
	DefaultMaxConcurrencyRetries = 10

	// DefaultAuditRetentionDays is how long audit events are kept when
	// nothing else is configured.
	DefaultAuditRetentionDays = 30
)
