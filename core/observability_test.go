package core

import (
	"context"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

type recordingLoggerProvider struct {
	logger Logger
	names  []string
}

func (p *recordingLoggerProvider) GetLogger(name string) Logger {
	p.names = append(p.names, name)
	return p.logger
}

func newObservedService(t *testing.T, store CommunityStore) (*Service, *captureMetricsRecorder, *captureLogger) {
	t.Helper()
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(DefaultConfig(),
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithCommunityStore(store),
		WithClock(func() time.Time {
			current := clock
			clock = clock.Add(5 * time.Millisecond)
			return current
		}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, metrics, logger
}

func TestServiceObservability_CreateCommunitySuccess(t *testing.T) {
	svc, metrics, logger := newObservedService(t, NewMemoryCommunityStore())

	ctx := ContextWithSource(context.Background(), "webhook")
	if _, err := svc.CreateCommunity(ctx, CreateCommunityInput{ID: "org_1", Name: "Acme", Slug: "acme", CreatedBy: "user_1"}); err != nil {
		t.Fatalf("create community: %v", err)
	}

	if len(metrics.counters) != 1 {
		t.Fatalf("expected one counter, got %d", len(metrics.counters))
	}
	counter := metrics.counters[0]
	if counter.name != "communities.create_community.total" {
		t.Fatalf("unexpected counter name %q", counter.name)
	}
	if counter.tags["status"] != "success" || counter.tags["source"] != "webhook" {
		t.Fatalf("unexpected counter tags %#v", counter.tags)
	}
	if _, ok := counter.tags["community_id"]; ok {
		t.Fatalf("community id must not become a metric tag")
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].value != 5 {
		t.Fatalf("expected one 5ms histogram sample, got %#v", metrics.histograms)
	}

	records := logger.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one log record, got %d", len(records))
	}
	if records[0].level != "info" || records[0].msg != "create_community succeeded" {
		t.Fatalf("unexpected log record %#v", records[0])
	}
	if records[0].fields["community_id"] != "org_1" || records[0].fields["source"] != "webhook" {
		t.Fatalf("expected community context in log fields, got %#v", records[0].fields)
	}
}

func TestServiceObservability_AddMemberFailure(t *testing.T) {
	svc, metrics, logger := newObservedService(t, NewMemoryCommunityStore())

	err := svc.AddMember(context.Background(), MembershipInput{CommunityID: "org_missing", UserID: "user_1"})
	if err == nil {
		t.Fatalf("expected add member to fail for unknown community")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != CommunityErrorNotFound {
		t.Fatalf("expected not found envelope, got %v", err)
	}

	if len(metrics.counters) != 1 || metrics.counters[0].tags["status"] != "failure" {
		t.Fatalf("expected failure counter, got %#v", metrics.counters)
	}
	records := logger.snapshot()
	if len(records) != 1 || records[0].level != "error" {
		t.Fatalf("expected one error log, got %#v", records)
	}
	if records[0].fields["error"] == nil {
		t.Fatalf("expected error field on failure log")
	}
}

func TestServiceObservability_UsesNamedProviderLogger(t *testing.T) {
	logger := newCaptureLogger()
	provider := &recordingLoggerProvider{logger: logger}
	svc, err := NewService(DefaultConfig(),
		WithLoggerProvider(provider),
		WithCommunityStore(NewMemoryCommunityStore()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.DeleteCommunity(context.Background(), "org_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	found := false
	for _, name := range provider.names {
		if name == "communities" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected provider to be asked for the communities logger, got %v", provider.names)
	}
	if len(logger.snapshot()) == 0 {
		t.Fatalf("expected provider logger to receive records")
	}
}
