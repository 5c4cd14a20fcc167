package config

import "time"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; network addresses,
// database DSNs, and backend URLs require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ThresholdsChanged is true when either suggestion threshold moved.
	ThresholdsChanged    bool
	NewPhoneticThreshold float64
	NewFuzzyThreshold    float64

	// SessionTTLChanged is true when the idle TTL moved; the sweeper picks
	// up the new value on its next pass.
	SessionTTLChanged bool
	NewIdleTTL        time.Duration
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Suggest.PhoneticThreshold != new.Suggest.PhoneticThreshold ||
		old.Suggest.FuzzyThreshold != new.Suggest.FuzzyThreshold {
		d.ThresholdsChanged = true
		d.NewPhoneticThreshold = new.Suggest.PhoneticThreshold
		d.NewFuzzyThreshold = new.Suggest.FuzzyThreshold
	}

	if old.Sessions.IdleTTL != new.Sessions.IdleTTL {
		d.SessionTTLChanged = true
		d.NewIdleTTL = new.Sessions.IdleTTL
	}

	return d
}
