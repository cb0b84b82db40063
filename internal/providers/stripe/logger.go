package stripe

import (
	"fmt"

	"github.com/rs/zerolog"
	stripego "github.com/stripe/stripe-go/v76"
)

// LeveledLogger routes the SDK's own log output into zerolog.
type LeveledLogger struct {
	logger zerolog.Logger
}

// NewLeveledLogger wraps logger for use as the SDK's leveled logger.
func NewLeveledLogger(logger zerolog.Logger) *LeveledLogger {
	return &LeveledLogger{logger: logger.With().Str("source", "stripe-go").Logger()}
}

func (l *LeveledLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, v...))
}

func (l *LeveledLogger) Infof(format string, v ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, v...))
}

func (l *LeveledLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, v...))
}

func (l *LeveledLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, v...))
}

var _ stripego.LeveledLoggerInterface = (*LeveledLogger)(nil)
