// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFile, when set, tees logs to a size-rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// DataFile is the append-log path for persisted ratings.
	DataFile string `koanf:"data_file" validate:"required"`

	// RosterFile is the YAML file declaring subjects and criteria.
	RosterFile string `koanf:"roster_file" validate:"required"`

	// IdentityPolicy selects how rater identities are derived:
	// session, fingerprint, or hybrid.
	IdentityPolicy string `koanf:"identity_policy" validate:"oneof=session fingerprint hybrid"`

	// IdentitySalt keys the identity digest. Required; never logged.
	IdentitySalt string `koanf:"identity_salt"`

	// AdminSecretDigest is the hex SHA-256 digest of the admin secret.
	// Empty disables admin endpoints.
	AdminSecretDigest string `koanf:"admin_secret_digest" validate:"omitempty,hexadecimal,len=64"`

	// StoreFsync forces an fsync on every persisted write.
	StoreFsync bool `koanf:"store_fsync"`

	// RaterSizeHint pre-sizes the duplicate-detection index.
	RaterSizeHint int `koanf:"rater_size_hint" validate:"gte=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		DataFile:       "scores.csv",
		RosterFile:     "roster.yaml",
		IdentityPolicy: "hybrid",
		StoreFsync:     true,
		RaterSizeHint:  1024,
	}
}
