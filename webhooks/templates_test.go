package webhooks

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/goliatone/go-communities/core"
	svix "github.com/svix/svix-webhooks/go"
)

const testSigningSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func signedRequest(t *testing.T, secret string, body []byte) core.InboundRequest {
	t.Helper()
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		t.Fatalf("new svix webhook: %v", err)
	}
	msgID := "msg_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	timestamp := time.Now()
	signature, err := wh.Sign(msgID, timestamp, body)
	if err != nil {
		t.Fatalf("sign payload: %v", err)
	}
	return core.InboundRequest{
		ProviderID: ProviderClerk,
		Body:       body,
		Headers: map[string]string{
			"Svix-Id":        msgID,
			"Svix-Timestamp": strconv.FormatInt(timestamp.Unix(), 10),
			"Svix-Signature": signature,
		},
	}
}

func TestSvixVerifier_AcceptsSignedBody(t *testing.T) {
	body := []byte(`{"type":"organization.deleted","object":"event","data":{"id":"org_1"}}`)
	req := signedRequest(t, testSigningSecret, body)

	if err := (SvixVerifier{Secret: testSigningSecret}).Verify(context.Background(), req); err != nil {
		t.Fatalf("expected signed body to verify: %v", err)
	}
}

func TestSvixVerifier_Rejects(t *testing.T) {
	body := []byte(`{"type":"organization.deleted","object":"event","data":{"id":"org_1"}}`)

	cases := []struct {
		name   string
		secret string
		mutate func(*core.InboundRequest)
	}{
		{name: "tampered body", secret: testSigningSecret, mutate: func(req *core.InboundRequest) {
			req.Body = []byte(`{"type":"organization.deleted","object":"event","data":{"id":"org_2"}}`)
		}},
		{name: "missing id header", secret: testSigningSecret, mutate: func(req *core.InboundRequest) {
			delete(req.Headers, "Svix-Id")
		}},
		{name: "missing timestamp header", secret: testSigningSecret, mutate: func(req *core.InboundRequest) {
			delete(req.Headers, "Svix-Timestamp")
		}},
		{name: "missing signature header", secret: testSigningSecret, mutate: func(req *core.InboundRequest) {
			delete(req.Headers, "Svix-Signature")
		}},
		{name: "stale timestamp", secret: testSigningSecret, mutate: func(req *core.InboundRequest) {
			req.Headers["Svix-Timestamp"] = strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
		}},
		{name: "empty secret", secret: "", mutate: func(*core.InboundRequest) {}},
		{name: "wrong secret", secret: "whsec_c2VjcmV0LW51bWJlci10d28tZm9yLXRlc3Rz", mutate: func(*core.InboundRequest) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := signedRequest(t, testSigningSecret, body)
			tc.mutate(&req)
			err := (SvixVerifier{Secret: tc.secret}).Verify(context.Background(), req)
			if err == nil {
				t.Fatalf("expected verification failure")
			}
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("expected ErrInvalidSignature, got %v", err)
			}
		})
	}
}

func TestClerkWebhookTemplate_VerifyAndExtract(t *testing.T) {
	template := NewClerkWebhookTemplate("  " + testSigningSecret + "  ")
	if template.ProviderID != ProviderClerk {
		t.Fatalf("expected clerk provider id, got %q", template.ProviderID)
	}
	body := []byte(`{"type":"organization.deleted","data":{"id":"org_1"}}`)
	req := signedRequest(t, testSigningSecret, body)

	if err := template.Verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("verify: %v", err)
	}
	deliveryID, err := template.Extractor(req)
	if err != nil {
		t.Fatalf("extract delivery id: %v", err)
	}
	if deliveryID != req.Headers["Svix-Id"] {
		t.Fatalf("expected svix id as delivery id, got %q", deliveryID)
	}
}

func TestHeaderDeliveryIDExtractor_FallsBackInOrder(t *testing.T) {
	extract := HeaderDeliveryIDExtractor("svix-id", "webhook-id")
	id, err := extract(core.InboundRequest{Headers: map[string]string{"Webhook-Id": "wh_1"}})
	if err != nil || id != "wh_1" {
		t.Fatalf("expected fallback header, got %q err=%v", id, err)
	}
	if _, err := extract(core.InboundRequest{}); err == nil {
		t.Fatalf("expected missing delivery id error")
	}
}
