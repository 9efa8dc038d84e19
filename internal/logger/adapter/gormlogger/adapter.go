// Package gormlogger adapts gorm's logger interface to the zerolog
// global logger so SQL logging flows through the same pipeline as the
// rest of the service logs.
package gormlogger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// Logger forwards gorm log calls to zerolog.
type Logger struct {
	// SlowThreshold marks completed queries slower than this as warnings.
	SlowThreshold time.Duration

	level glogger.LogLevel
}

// New creates a Logger at warn level with the default slow-query threshold.
func New() *Logger {
	return &Logger{
		SlowThreshold: defaultSlowThreshold,
		level:         glogger.Warn,
	}
}

// LogMode returns a copy of the logger at the given gorm log level.
func (l *Logger) LogMode(level glogger.LogLevel) glogger.Interface {
	clone := *l
	clone.level = level

	return &clone
}

// Info logs at info level.
func (l *Logger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= glogger.Info {
		log.Info().Msgf(msg, data...)
	}
}

// Warn logs at warn level.
func (l *Logger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= glogger.Warn {
		log.Warn().Msgf(msg, data...)
	}
}

// Error logs at error level.
func (l *Logger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= glogger.Error {
		log.Error().Msgf(msg, data...)
	}
}

// Trace logs completed statements. ErrRecordNotFound is a routine
// outcome and is not reported as a query failure.
func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= glogger.Error:
		sql, rows := fc()
		log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.level >= glogger.Warn:
		sql, rows := fc()
		log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.level >= glogger.Info:
		sql, rows := fc()
		log.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
