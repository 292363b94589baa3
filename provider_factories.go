package communities

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-communities/core"
	"github.com/goliatone/go-communities/inbound"
	"github.com/goliatone/go-communities/webhooks"
)

type WebhookHandlerOption func(*webhookHandlerOptions)

type webhookHandlerOptions struct {
	logger       core.Logger
	metrics      core.MetricsRecorder
	defaultBio   string
	maxBodyBytes int64
}

func WithWebhookLogger(logger core.Logger) WebhookHandlerOption {
	return func(o *webhookHandlerOptions) {
		o.logger = logger
	}
}

func WithWebhookMetrics(recorder core.MetricsRecorder) WebhookHandlerOption {
	return func(o *webhookHandlerOptions) {
		o.metrics = recorder
	}
}

func WithWebhookDefaultBio(bio string) WebhookHandlerOption {
	return func(o *webhookHandlerOptions) {
		o.defaultBio = bio
	}
}

func WithWebhookMaxBodyBytes(limit int64) WebhookHandlerOption {
	return func(o *webhookHandlerOptions) {
		o.maxBodyBytes = limit
	}
}

// ClerkDispatcher builds the Svix-verified dispatcher for Clerk deliveries.
func ClerkDispatcher(secret string, store CommunityStore, opts ...WebhookHandlerOption) (*webhooks.Dispatcher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("communities: webhook signing secret is required")
	}
	if store == nil {
		return nil, fmt.Errorf("communities: community store is required")
	}
	options := resolveWebhookHandlerOptions(opts)

	dispatcherOpts := []webhooks.DispatcherOption{webhooks.WithDefaultBio(options.defaultBio)}
	if options.logger != nil {
		dispatcherOpts = append(dispatcherOpts, webhooks.WithDispatcherLogger(options.logger))
	}
	if options.metrics != nil {
		dispatcherOpts = append(dispatcherOpts, webhooks.WithDispatcherMetrics(options.metrics))
	}
	return webhooks.NewDispatcherFromTemplate(webhooks.NewClerkWebhookTemplate(secret), store, dispatcherOpts...), nil
}

// ClerkWebhookHandler wraps ClerkDispatcher in the HTTP ingress handler.
func ClerkWebhookHandler(secret string, store CommunityStore, opts ...WebhookHandlerOption) (http.Handler, error) {
	dispatcher, err := ClerkDispatcher(secret, store, opts...)
	if err != nil {
		return nil, err
	}
	options := resolveWebhookHandlerOptions(opts)
	return inbound.NewWebhookHandler(dispatcher.ProviderID, dispatcher, options.maxBodyBytes, options.logger), nil
}

func resolveWebhookHandlerOptions(opts []WebhookHandlerOption) webhookHandlerOptions {
	options := webhookHandlerOptions{
		defaultBio:   core.DefaultCommunityBio,
		maxBodyBytes: core.DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}
