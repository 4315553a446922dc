// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger is the structured logger every layer of the kernel VFS
// writes through instead of fmt.Printf or the standard log package: a
// slog.Logger backed by either stderr or a lumberjack-rotated file, at one
// of six severities (TRACE, DEBUG, INFO, WARNING, ERROR, OFF) and in one of
// two encodings (text, json).
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gokernel/vfscore/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// The six severities a logger operates at, expressed as slog.Level values
// spaced wide enough to leave room between slog's own
// Debug/Info/Warn/Error for Trace and Off.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
	LevelOff:   "OFF",
}

// severityToSlogLevel translates a cfg.LogSeverity string (case
// insensitive) to the slog.Level the logger filters on. An unrecognized
// value behaves as INFO.
func severityToSlogLevel(level string) slog.Level {
	switch cfg.LogSeverity(strings.ToUpper(level)) {
	case cfg.TraceLogSeverity:
		return LevelTrace
	case cfg.DebugLogSeverity:
		return LevelDebug
	case cfg.WarningLogSeverity:
		return LevelWarn
	case cfg.ErrorLogSeverity:
		return LevelError
	case cfg.OffLogSeverity:
		return LevelOff
	default:
		return LevelInfo
	}
}

// setLoggingLevel updates programLevel to match the named severity.
func setLoggingLevel(level string, programLevel *slog.LevelVar) {
	programLevel.Set(severityToSlogLevel(level))
}

// loggerFactory holds everything needed to (re)build defaultLogger: where
// it writes, in what encoding, and at what severity.
type loggerFactory struct {
	file            *os.File
	sysWriter       io.Writer
	format          string
	level           string
	logRotateConfig cfg.LogRotateConfig
}

var (
	defaultLoggerFactory = &loggerFactory{
		sysWriter:       os.Stderr,
		level:           string(cfg.InfoLogSeverity),
		format:          string(cfg.TextLogFormat),
		logRotateConfig: cfg.GetDefaultLoggingConfig().LogRotate,
	}
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, new(slog.LevelVar), ""),
	)
)

// jsonTimestamp matches the {"seconds":...,"nanos":...} shape used instead
// of a single RFC3339 string, so log aggregators that already parse that
// shape keep working unchanged.
type jsonTimestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int   `json:"nanos"`
}

// replaceAttr rewrites slog's default {time,level,msg} attributes into the
// {timestamp,severity,message} shape both encodings share, and renders the
// custom Trace/Off levels with their own names instead of slog's numeric
// fallback.
func replaceAttr(format string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.TimeKey:
			if format == string(cfg.JSONLogFormat) {
				t := a.Value.Time()
				return slog.Any("timestamp", jsonTimestamp{Seconds: t.Unix(), Nanos: t.Nanosecond()})
			}
			return slog.String("time", a.Value.Time().Format("2006/01/02 15:04:05.000000"))
		case slog.LevelKey:
			lvl := a.Value.Any().(slog.Level)
			name, ok := levelNames[lvl]
			if !ok {
				name = lvl.String()
			}
			return slog.String("severity", name)
		case slog.MessageKey:
			return slog.String("message", a.Value.String())
		}
		return a
	}
}

// prefixHandler prepends prefix to every record's message before handing
// it to the wrapped handler, so tests can tag their own log lines for
// regexp matching without it leaking into the structured attributes.
type prefixHandler struct {
	slog.Handler
	prefix string
}

func (h *prefixHandler) Handle(ctx context.Context, r slog.Record) error {
	tagged := r.Clone()
	tagged.Message = h.prefix + r.Message
	return h.Handler.Handle(ctx, tagged)
}

// createJsonOrTextHandler builds the slog.Handler defaultLogger uses, in
// either JSON or text encoding per f.format, tagging every message with
// prefix if one is given.
func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr(f.format)}
	var h slog.Handler
	if f.format == string(cfg.JSONLogFormat) {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if prefix == "" {
		return h
	}
	return &prefixHandler{Handler: h, prefix: prefix}
}

// buildDefaultLogger rebuilds defaultLogger from defaultLoggerFactory's
// current settings, writing either to the rotated file (if one was opened
// via InitLogFile) or to sysWriter.
func buildDefaultLogger() {
	programLevel := new(slog.LevelVar)
	programLevel.Set(severityToSlogLevel(defaultLoggerFactory.level))

	w := defaultLoggerFactory.sysWriter
	if defaultLoggerFactory.file != nil {
		w = &lumberjack.Logger{
			Filename:   defaultLoggerFactory.file.Name(),
			MaxSize:    defaultLoggerFactory.logRotateConfig.MaxFileSizeMB,
			MaxBackups: defaultLoggerFactory.logRotateConfig.BackupFileCount,
			Compress:   defaultLoggerFactory.logRotateConfig.Compress,
		}
	}

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, ""))
}

// SetLogFormat switches the default logger's encoding ("text" or "json";
// anything else, including "", falls back to "json") and rebuilds
// defaultLogger.
func SetLogFormat(format string) {
	if format != string(cfg.TextLogFormat) {
		format = string(cfg.JSONLogFormat)
	}
	defaultLoggerFactory.format = format
	buildDefaultLogger()
}

// InitLogFile points the default logger at a rotated file named by
// config.FilePath, using config.LogRotate for lumberjack's rotation policy,
// and sets the severity and encoding from config. If config.FilePath is
// empty the logger continues writing to stderr.
func InitLogFile(config cfg.LoggingConfig) error {
	defaultLoggerFactory.level = string(config.Severity)
	defaultLoggerFactory.format = string(config.Format)
	defaultLoggerFactory.logRotateConfig = config.LogRotate

	if config.FilePath == "" {
		defaultLoggerFactory.file = nil
		defaultLoggerFactory.sysWriter = os.Stderr
		buildDefaultLogger()
		return nil
	}

	f, err := os.OpenFile(string(config.FilePath), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", config.FilePath, err)
	}
	defaultLoggerFactory.file = f
	defaultLoggerFactory.sysWriter = nil
	buildDefaultLogger()
	return nil
}

func logAt(ctx context.Context, level slog.Level, format string, v ...any) {
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	msg := format
	if len(v) > 0 {
		msg = fmt.Sprintf(format, v...)
	}
	defaultLogger.Log(ctx, level, msg)
}

func Tracef(format string, v ...any) { logAt(context.Background(), LevelTrace, format, v...) }
func Debugf(format string, v ...any) { logAt(context.Background(), LevelDebug, format, v...) }
func Infof(format string, v ...any)  { logAt(context.Background(), LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { logAt(context.Background(), LevelWarn, format, v...) }
func Errorf(format string, v ...any) { logAt(context.Background(), LevelError, format, v...) }
