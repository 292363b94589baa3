package gologger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolveDeterministicFallback(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	providerLogger := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: providerLogger}

	var resolvedProvider glog.LoggerProvider
	_, resolved := Resolve("communities", provider, loggerOnly)
	got := resolved.(*capturingLogger)
	if got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	resolvedProvider, resolved = Resolve("communities", nil, loggerOnly)
	got = resolved.(*capturingLogger)
	if got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve("communities", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestLogrusLogger_ArgsBecomeFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewLogrus(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("new logrus: %v", err)
	}
	logger := NewLogrusLogger(base)

	logger.Info("delivery handled", "event_type", "organization.created", "status_code", 201)

	entry := decodeLogLine(t, buf.Bytes())
	if entry["msg"] != "delivery handled" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry["event_type"] != "organization.created" {
		t.Fatalf("expected event_type field, got %+v", entry)
	}
	if entry["status_code"] != float64(201) {
		t.Fatalf("expected status_code field, got %+v", entry)
	}
}

func TestLogrusLogger_WithFieldsAndOddArgs(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewLogrus(&buf, "info", "json")
	if err != nil {
		t.Fatalf("new logrus: %v", err)
	}
	logger := NewLogrusLogger(base).WithFields(map[string]any{"provider_id": "clerk"})

	logger.Warn("rejected", "delivery_id", "msg_1", "dangling")

	entry := decodeLogLine(t, buf.Bytes())
	if entry["provider_id"] != "clerk" || entry["delivery_id"] != "msg_1" || entry["extra"] != "dangling" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry["level"] != "warning" {
		t.Fatalf("expected warning level, got %v", entry["level"])
	}
}

func TestLogrusLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewLogrus(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("new logrus: %v", err)
	}
	NewLogrusLogger(base).WithContext(context.Background()).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestNewLogrus_RejectsUnknownInputs(t *testing.T) {
	if _, err := NewLogrus(nil, "loud", "json"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
	if _, err := NewLogrus(nil, "info", "xml"); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}

func TestLogrusProvider_NamesLoggers(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewLogrus(&buf, "info", "json")
	if err != nil {
		t.Fatalf("new logrus: %v", err)
	}
	provider := NewLogrusProvider(base)

	_, resolved := Resolve("communities", provider, nil)
	resolved.Info("ready")

	entry := decodeLogLine(t, buf.Bytes())
	if entry["logger"] != "communities" {
		t.Fatalf("expected named logger field, got %+v", entry)
	}
}

func decodeLogLine(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	if len(lines) == 0 || len(lines[len(lines)-1]) == 0 {
		t.Fatalf("expected a log line")
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
