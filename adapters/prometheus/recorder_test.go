package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_CounterUsesPresetSchema(t *testing.T) {
	ctx := context.Background()
	recorder := NewRecorder(WithNamespace("app"))

	recorder.IncCounter(ctx, "communities.create_community.total", 1, map[string]string{
		"operation": "create_community",
		"status":    "success",
	})
	recorder.IncCounter(ctx, "communities.create_community.total", 2, map[string]string{
		"operation": "create_community",
		"status":    "success",
		"source":    "webhook",
		"ignored":   "x",
	})

	name := "communities.create_community.total"
	counter := recorder.counters[name]
	if counter == nil {
		t.Fatalf("expected counter %s to be registered", name)
	}
	if labels := recorder.labels[name]; strings.Join(labels, ",") != "operation,source,status" {
		t.Fatalf("unexpected label schema %v", labels)
	}
	withoutSource := testutil.ToFloat64(counter.With(prom.Labels{"operation": "create_community", "source": "", "status": "success"}))
	withSource := testutil.ToFloat64(counter.With(prom.Labels{"operation": "create_community", "source": "webhook", "status": "success"}))
	if withoutSource != 1 || withSource != 2 {
		t.Fatalf("unexpected counter values %v/%v", withoutSource, withSource)
	}
	if count := testutil.CollectAndCount(recorder.Registry(), "app_communities_create_community_total"); count != 2 {
		t.Fatalf("expected two series, got %d", count)
	}
}

func TestRecorder_HistogramAndHandler(t *testing.T) {
	ctx := context.Background()
	recorder := NewRecorder()

	recorder.ObserveHistogram(ctx, "webhooks.deliveries.duration_ms", 12, map[string]string{
		"provider_id": "clerk",
		"event_type":  "organization.created",
		"status_code": "201",
	})
	if count := testutil.CollectAndCount(recorder.Registry(), "webhooks_deliveries_duration_ms"); count != 1 {
		t.Fatalf("expected one histogram series, got %d", count)
	}

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(string(body), `webhooks_deliveries_duration_ms_count{event_type="organization.created",provider_id="clerk",status_code="201"} 1`) {
		t.Fatalf("expected histogram sample in exposition, got:\n%s", body)
	}
}

func TestRecorder_UnknownMetricLearnsLabelsFromFirstCall(t *testing.T) {
	ctx := context.Background()
	recorder := NewRecorder()

	recorder.IncCounter(ctx, "custom.events", 1, map[string]string{"kind": "a"})
	recorder.IncCounter(ctx, "custom.events", 1, map[string]string{"kind": "a", "extra": "dropped"})
	recorder.IncCounter(ctx, "custom.events", -1, map[string]string{"kind": "a"})

	expected := `
# HELP custom_events Counter for custom.events.
# TYPE custom_events counter
custom_events{kind="a"} 2
`
	if err := testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "custom_events"); err != nil {
		t.Fatalf("unexpected counter output: %v", err)
	}
	if labels := recorder.labels["custom.events"]; len(labels) != 1 || labels[0] != "kind" {
		t.Fatalf("expected labels learned from first call, got %v", labels)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"communities.add_member.total": "communities_add_member_total",
		"status-code":                  "status_code",
		"9lives":                       "_9lives",
		"  ":                           "",
	}
	for input, want := range cases {
		if got := sanitizeName(input); got != want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var recorder *Recorder
	recorder.IncCounter(context.Background(), "x", 1, nil)
	recorder.ObserveHistogram(context.Background(), "x", 1, nil)
	if recorder.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}
