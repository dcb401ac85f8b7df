package adapters

import (
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLoggerAdapter is the default logger implementation, emitting
// structured JSON log lines via logrus.
type LogrusLoggerAdapter struct {
	logger *logrus.Entry
}

// Ensure LogrusLoggerAdapter implements LoggerAdapter interface
var _ LoggerAdapter = (*LogrusLoggerAdapter)(nil)

// NewLogrusLoggerAdapter creates a logger at the given level.
func NewLogrusLoggerAdapter(level LogLevel) *LogrusLoggerAdapter {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	switch level {
	case LogLevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelInfo:
		logger.SetLevel(logrus.InfoLevel)
	case LogLevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LogLevelError:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelNone:
		logger.SetLevel(logrus.PanicLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}

	return &LogrusLoggerAdapter{
		logger: logger.WithField("component", "mgm"),
	}
}

func (l *LogrusLoggerAdapter) Debug(message string, args ...any) {
	l.logger.Debugf(message, args...)
}

func (l *LogrusLoggerAdapter) Info(message string, args ...any) {
	l.logger.Infof(message, args...)
}

func (l *LogrusLoggerAdapter) Warn(message string, args ...any) {
	l.logger.Warnf(message, args...)
}

func (l *LogrusLoggerAdapter) Error(message string, args ...any) {
	l.logger.Errorf(message, args...)
}
