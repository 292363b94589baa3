package prometheus

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-communities/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultDurationBuckets are millisecond buckets for handler durations.
var DefaultDurationBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Recorder implements core.MetricsRecorder on a prometheus registry. Vectors
// are created on first use; their label names come from a preset schema when
// one matches the metric and from the first observation otherwise. Tags
// outside the schema are dropped and missing ones are recorded empty.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry
	buckets   []float64
	schemas   map[string][]string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	labels     map[string][]string
}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitizeName(namespace)
	}
}

func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// WithLabels fixes the label names for metrics whose name starts with
// prefix.
func WithLabels(prefix string, labels ...string) Option {
	return func(r *Recorder) {
		r.schemas[strings.TrimSpace(prefix)] = sortedLabels(labels)
	}
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		buckets:  DefaultDurationBuckets,
		schemas: map[string][]string{
			"communities.":         {"operation", "source", "status"},
			"webhooks.deliveries.": {"event_type", "provider_id", "status_code"},
		},
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
		labels:     map[string][]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	counter, labels := r.counter(name, tags)
	if counter == nil {
		return
	}
	counter.With(labelValues(labels, tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	histogram, labels := r.histogram(name, tags)
	if histogram == nil {
		return
	}
	histogram.With(labelValues(labels, tags)).Observe(value)
}

// Handler serves the recorder's registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) counter(name string, tags map[string]string) (*prometheus.CounterVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[name]; ok {
		return existing, r.labels[name]
	}
	labels := r.schemaFor(name, tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      sanitizeName(name),
		Help:      "Counter for " + name + ".",
	}, labels)
	if err := r.registry.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				vec = existing
			} else {
				return nil, nil
			}
		} else {
			return nil, nil
		}
	}
	r.counters[name] = vec
	r.labels[name] = labels
	return vec, labels
}

func (r *Recorder) histogram(name string, tags map[string]string) (*prometheus.HistogramVec, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[name]; ok {
		return existing, r.labels[name]
	}
	labels := r.schemaFor(name, tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      sanitizeName(name),
		Help:      "Histogram for " + name + ".",
		Buckets:   r.buckets,
	}, labels)
	if err := r.registry.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				vec = existing
			} else {
				return nil, nil
			}
		} else {
			return nil, nil
		}
	}
	r.histograms[name] = vec
	r.labels[name] = labels
	return vec, labels
}

func (r *Recorder) schemaFor(name string, tags map[string]string) []string {
	longest := ""
	for prefix := range r.schemas {
		if strings.HasPrefix(name, prefix) && len(prefix) > len(longest) {
			longest = prefix
		}
	}
	if longest != "" {
		return r.schemas[longest]
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	return sortedLabels(keys)
}

func labelValues(labels []string, tags map[string]string) prometheus.Labels {
	values := make(prometheus.Labels, len(labels))
	for _, label := range labels {
		for key, value := range tags {
			if sanitizeName(key) == label {
				values[label] = value
				break
			}
		}
		if _, ok := values[label]; !ok {
			values[label] = ""
		}
	}
	return values
}

func sortedLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := map[string]struct{}{}
	for _, label := range labels {
		name := sanitizeName(label)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// sanitizeName maps a dotted metric or tag name onto the prometheus
// [a-zA-Z_][a-zA-Z0-9_]* alphabet.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
