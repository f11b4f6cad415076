package config

const (
	defaultDataDir              = "~/.local/share/tally"
	defaultLogDir               = "~/.local/share/tally/logs"
	defaultPracticeName         = "Tally"
	defaultNotifyRequestTimeout = 10
	defaultNotifyQueueSize      = 64
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Practice: Practice{
			Name: defaultPracticeName,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			QueueSize:      defaultNotifyQueueSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
