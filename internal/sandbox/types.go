package sandbox

import "time"

// Config controls script execution.
type Config struct {
	Timeout       time.Duration // per-script execution limit
	EnableConsole bool          // record console.log/warn/error
	MaxCallStack  int           // 0 leaves the goja default
}

// DefaultConfig returns the settings used for inline page scripts.
func DefaultConfig() Config {
	return Config{
		Timeout:       2 * time.Second,
		EnableConsole: true,
		MaxCallStack:  1024,
	}
}

// Script is one inline script taken from a document.
type Script struct {
	Name   string
	Source string
}

// LogEntry represents console output.
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// QueryFunc answers document.querySelector calls made by scripts.
type QueryFunc func(selector string) (bool, error)
