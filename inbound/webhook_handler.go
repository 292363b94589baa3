package inbound

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-communities/core"
	glog "github.com/goliatone/go-logger/glog"
)

const SurfaceWebhook = "webhook"

// DeliveryHandler is satisfied by webhooks.Dispatcher.
type DeliveryHandler interface {
	Handle(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

// WebhookHandler adapts a DeliveryHandler to net/http. The raw body is
// passed through untouched because signatures cover the exact bytes.
type WebhookHandler struct {
	ProviderID   string
	Handler      DeliveryHandler
	MaxBodyBytes int64
	Logger       core.Logger
}

func NewWebhookHandler(providerID string, handler DeliveryHandler, maxBodyBytes int64, logger core.Logger) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = core.DefaultMaxBodyBytes
	}
	return &WebhookHandler{
		ProviderID:   strings.TrimSpace(providerID),
		Handler:      handler,
		MaxBodyBytes: maxBodyBytes,
		Logger:       glog.Ensure(logger),
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeMessage(w, http.StatusMethodNotAllowed, MessageMethodNotAllowed)
		return
	}
	if h == nil || h.Handler == nil {
		h.logError(r.Context(), "webhook handler is not configured", inboundInternal(errors.New("inbound: webhook handler is nil"), nil))
		writeMessage(w, http.StatusInternalServerError, MessageInternalError)
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = core.DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logWarn(r.Context(), "webhook body exceeds limit", map[string]any{
				"provider_id": h.ProviderID,
				"limit_bytes": limit,
			})
			writeMessage(w, http.StatusRequestEntityTooLarge, MessagePayloadTooLarge)
			return
		}
		readErr := inboundBadInput(MessageInvalidData, map[string]any{"provider_id": h.ProviderID})
		readErr.Source = err
		h.logWarn(r.Context(), "webhook body read failed", map[string]any{
			"provider_id": h.ProviderID,
			"text_code":   readErr.TextCode,
			"error":       err.Error(),
		})
		writeMessage(w, http.StatusBadRequest, MessageInvalidData)
		return
	}

	req := core.InboundRequest{
		ProviderID: h.ProviderID,
		Surface:    SurfaceWebhook,
		Headers:    FlattenHeaders(r.Header),
		Body:       body,
		Metadata: map[string]any{
			"remote_addr": r.RemoteAddr,
			"path":        r.URL.Path,
		},
	}
	result, err := h.Handler.Handle(r.Context(), req)
	status := result.StatusCode
	message := result.Message
	if status == 0 {
		status = http.StatusInternalServerError
		if err == nil {
			err = inboundInternal(errors.New("inbound: handler returned no status"), map[string]any{"provider_id": h.ProviderID})
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if err != nil && status >= http.StatusInternalServerError {
		h.logError(r.Context(), "webhook delivery failed", err)
	}
	writeMessage(w, status, message)
}

// FlattenHeaders keeps the first value of each header under its canonical
// name.
func FlattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		out[http.CanonicalHeaderKey(key)] = values[0]
	}
	return out
}

func (h *WebhookHandler) logWarn(ctx context.Context, message string, fields map[string]any) {
	if h == nil || h.Logger == nil {
		return
	}
	core.LogWithFields(ctx, h.Logger, "warn", message, fields)
}

func (h *WebhookHandler) logError(ctx context.Context, message string, err error) {
	if h == nil || h.Logger == nil {
		return
	}
	core.LogWithFields(ctx, h.Logger, "error", message, map[string]any{
		"provider_id": h.ProviderID,
		"error":       err.Error(),
	})
}
