package types

// RunMode selects which parts of the application a process runs.
type RunMode string

const (
	RunModeServer RunMode = "server"
	RunModeWorker RunMode = "worker"
	RunModeLocal  RunMode = "local"
)

// LogLevel mirrors zap levels at the config surface.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
