package shared

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	ServiceName string // "zkcat" or "zkcat-prover"
	Development bool   // console logging at debug level
	Quiet       bool   // errors only, used by the CLI so logs don't mix with output
}

// Logger wraps zap.Logger with additional context
type Logger struct {
	*zap.Logger
	serviceName string
}

// NewLogger creates a new logger instance based on the configuration
func NewLogger(config LoggerConfig) (*Logger, error) {
	var zapConfig zap.Config

	switch {
	case config.Quiet:
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
		zapConfig.DisableCaller = true
		zapConfig.DisableStacktrace = true
	case config.Development:
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	// stdout belongs to the command output
	zapConfig.OutputPaths = []string{"stderr"}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	zapLogger = zapLogger.With(zap.String("service", config.ServiceName))

	return &Logger{
		Logger:      zapLogger,
		serviceName: config.ServiceName,
	}, nil
}

// NewLoggerFromEnv creates a logger using environment variables
func NewLoggerFromEnv(serviceName string) (*Logger, error) {
	return NewLogger(LoggerConfig{
		ServiceName: serviceName,
		Development: GetEnvOrDefault("DEVELOPMENT", "false") == "true",
		Quiet:       GetEnvOrDefault("ZKCAT_QUIET", "false") == "true",
	})
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "nop"}
}

// WrapLogger adopts an existing zap logger, e.g. one from zaptest.
func WrapLogger(l *zap.Logger, serviceName string) *Logger {
	return &Logger{Logger: l.With(zap.String("service", serviceName)), serviceName: serviceName}
}

// Session-aware logging methods
func (l *Logger) WithSession(sessionID string) *zap.Logger {
	if sessionID == "" {
		return l.Logger
	}
	return l.Logger.With(zap.String("session_id", sessionID))
}

// WithPhase tags entries with the pipeline phase (read, prove, persist ...)
func (l *Logger) WithPhase(phase Phase) *zap.Logger {
	return l.Logger.With(zap.String("phase", string(phase)))
}

// Security event logging - for events that indicate the engine and host disagree
func (l *Logger) Security(msg string, fields ...zap.Field) {
	l.Logger.Warn(msg, append(fields, zap.Bool("security_event", true))...)
}

// ServiceName returns the service field attached to every entry.
func (l *Logger) ServiceName() string {
	return l.serviceName
}

// Close flushes any buffered entries
func (l *Logger) Close() error {
	return l.Logger.Sync()
}
