package config

const (
	defaultStateDir        = "~/.local/share/wavconv"
	defaultEncoderBackend  = BackendLame
	defaultQuality         = "high"
	defaultInputExtension  = "wav"
	defaultOutputExtension = "mp3"
	defaultExtensionCase   = "lower"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultHistoryEnabled  = true
	defaultFailOnJobError  = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Encoder: Encoder{
			Backend: defaultEncoderBackend,
			Quality: defaultQuality,
		},
		Batch: Batch{
			MaxConcurrency:  0,
			InputExtension:  defaultInputExtension,
			OutputExtension: defaultOutputExtension,
			ExtensionCase:   defaultExtensionCase,
			FailOnJobError:  defaultFailOnJobError,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
