package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// store wiring requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// DefaultsChanged is true when assessment defaults (grade, language)
	// changed. New sessions pick them up; in-flight sessions keep the values
	// they started with.
	DefaultsChanged bool
	NewDefaults     AssessmentConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Assessment != new.Assessment {
		d.DefaultsChanged = true
		d.NewDefaults = new.Assessment
	}

	return d
}
