package gologger

import (
	"context"
	"fmt"
	"io"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/sirupsen/logrus"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// LogrusLogger adapts a logrus entry to glog.Logger. Key/value args become
// logrus fields.
type LogrusLogger struct {
	entry *logrus.Entry
}

func NewLogrusLogger(base *logrus.Logger) *LogrusLogger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

// NewLogrus builds a logrus logger writing to out. format is "json" or
// "text"; level accepts any logrus level name.
func NewLogrus(out io.Writer, level string, format string) (*logrus.Logger, error) {
	base := logrus.New()
	if out != nil {
		base.SetOutput(out)
	}
	if strings.TrimSpace(level) != "" {
		parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
		if err != nil {
			return nil, fmt.Errorf("gologger: %w", err)
		}
		base.SetLevel(parsed)
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("gologger: unsupported log format %q", format)
	}
	return base, nil
}

func (l *LogrusLogger) Trace(msg string, args ...any) { l.with(args).Trace(msg) }
func (l *LogrusLogger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l *LogrusLogger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l *LogrusLogger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l *LogrusLogger) Error(msg string, args ...any) { l.with(args).Error(msg) }
func (l *LogrusLogger) Fatal(msg string, args ...any) { l.with(args).Fatal(msg) }

func (l *LogrusLogger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		return l
	}
	return &LogrusLogger{entry: l.base().WithContext(ctx)}
}

func (l *LogrusLogger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	return &LogrusLogger{entry: l.base().WithFields(logrus.Fields(fields))}
}

// Entry exposes the underlying entry for callers that need logrus directly.
func (l *LogrusLogger) Entry() *logrus.Entry {
	return l.base()
}

func (l *LogrusLogger) with(args []any) *logrus.Entry {
	entry := l.base()
	if len(args) == 0 {
		return entry
	}
	return entry.WithFields(argsToFields(args))
}

func (l *LogrusLogger) base() *logrus.Entry {
	if l == nil || l.entry == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return l.entry
}

func argsToFields(args []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key := strings.TrimSpace(fmt.Sprint(args[i]))
		if i+1 >= len(args) {
			fields["extra"] = args[i]
			break
		}
		if key == "" {
			key = fmt.Sprintf("arg%d", i)
		}
		fields[key] = args[i+1]
	}
	return fields
}

// LogrusProvider hands out named loggers tagged with a "logger" field.
type LogrusProvider struct {
	root *LogrusLogger
}

func NewLogrusProvider(base *logrus.Logger) *LogrusProvider {
	return &LogrusProvider{root: NewLogrusLogger(base)}
}

func (p *LogrusProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.root == nil {
		return glog.Nop()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return p.root
	}
	return p.root.WithFields(map[string]any{"logger": name})
}

var (
	_ glog.Logger         = (*LogrusLogger)(nil)
	_ glog.FieldsLogger   = (*LogrusLogger)(nil)
	_ glog.LoggerProvider = (*LogrusProvider)(nil)
)
