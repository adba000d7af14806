// Package logging builds the process logger from configuration.
package logging

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names shared by handlers, services and middleware.
const (
	FieldDumpID    = "dump_id"
	FieldStage     = "stage"
	FieldProvider  = "provider"
	FieldRequestID = "request_id"
	FieldError     = "error"
)

// New returns a sugared logger writing to stderr. level accepts the zap
// level names (debug, info, warn, error) and "warning"/"critical" in any
// case; format is "json" or "console".
func New(level, format string) (*zap.SugaredLogger, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "warning":
		name = "warn"
	case "critical":
		name = "fatal"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Newf("invalid log format %q (allowed: json, console)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return l.Sugar(), nil
}
