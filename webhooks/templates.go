package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-communities/core"
	svix "github.com/svix/svix-webhooks/go"
)

const (
	HeaderSvixID        = "svix-id"
	HeaderSvixTimestamp = "svix-timestamp"
	HeaderSvixSignature = "svix-signature"

	ProviderClerk = "clerk"
)

var svixRequiredHeaders = []string{HeaderSvixID, HeaderSvixTimestamp, HeaderSvixSignature}

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

type DeliveryIDExtractor func(req core.InboundRequest) (string, error)

type ProviderWebhookTemplate struct {
	ProviderID string
	Verifier   Verifier
	Extractor  DeliveryIDExtractor
}

// SvixVerifier checks the svix-* signature headers against the raw body.
// An empty secret rejects every delivery.
type SvixVerifier struct {
	Secret string
}

func (v SvixVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	headers := http.Header{}
	for _, key := range svixRequiredHeaders {
		value := headerValue(req.Headers, key)
		if value == "" {
			return fmt.Errorf("%w: %s header is required", ErrInvalidSignature, key)
		}
		headers.Set(key, value)
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("%w: signing secret is not configured", ErrInvalidSignature)
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return fmt.Errorf("%w: signing secret: %v", ErrInvalidSignature, err)
	}
	if err := wh.Verify(req.Body, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func HeaderDeliveryIDExtractor(headers ...string) DeliveryIDExtractor {
	keys := append([]string(nil), headers...)
	return func(req core.InboundRequest) (string, error) {
		for _, key := range keys {
			if value := strings.TrimSpace(headerValue(req.Headers, key)); value != "" {
				return value, nil
			}
		}
		return "", fmt.Errorf("webhooks: delivery id header is missing")
	}
}

func NewClerkWebhookTemplate(secret string) ProviderWebhookTemplate {
	return ProviderWebhookTemplate{
		ProviderID: ProviderClerk,
		Verifier:   SvixVerifier{Secret: strings.TrimSpace(secret)},
		Extractor:  HeaderDeliveryIDExtractor(HeaderSvixID, "webhook-id"),
	}
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return metadata
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
