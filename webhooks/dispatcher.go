package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-communities/core"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

type Handler interface {
	Handle(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

// Dispatcher verifies a delivery, decodes it into an Event and applies the
// single matching store mutation. It holds no per-request state.
type Dispatcher struct {
	ProviderID string
	Verifier   Verifier
	Store      core.CommunityStore
	ExtractID  DeliveryIDExtractor
	DefaultBio string
	Logger     core.Logger
	Metrics    core.MetricsRecorder
	Now        func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.Logger = logger
	}
}

func WithDispatcherMetrics(recorder core.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.Metrics = recorder
	}
}

func WithDefaultBio(bio string) DispatcherOption {
	return func(d *Dispatcher) {
		d.DefaultBio = bio
	}
}

func WithDeliveryIDExtractor(extractor DeliveryIDExtractor) DispatcherOption {
	return func(d *Dispatcher) {
		d.ExtractID = extractor
	}
}

func NewDispatcher(verifier Verifier, store core.CommunityStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		ProviderID: ProviderClerk,
		Verifier:   verifier,
		Store:      store,
		ExtractID:  HeaderDeliveryIDExtractor(HeaderSvixID),
		DefaultBio: core.DefaultCommunityBio,
		Logger:     glog.Nop(),
		Metrics:    core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// NewDispatcherFromTemplate wires the template's verifier and delivery id
// extractor.
func NewDispatcherFromTemplate(template ProviderWebhookTemplate, store core.CommunityStore, opts ...DispatcherOption) *Dispatcher {
	d := NewDispatcher(template.Verifier, store, opts...)
	if strings.TrimSpace(template.ProviderID) != "" {
		d.ProviderID = strings.TrimSpace(template.ProviderID)
	}
	if template.Extractor != nil {
		d.ExtractID = template.Extractor
	}
	return d
}

// Handle always returns a result carrying the response status and message.
// The error, when present, describes the failure for logging only.
func (d *Dispatcher) Handle(ctx context.Context, req core.InboundRequest) (result core.InboundResult, err error) {
	startedAt := d.now()
	metadata := map[string]any{
		"provider_id": d.providerID(req),
	}
	if deliveryID := d.deliveryID(req); deliveryID != "" {
		metadata["delivery_id"] = deliveryID
	}
	defer func() {
		result.Metadata = mergeMetadata(result.Metadata, metadata)
		d.observe(ctx, startedAt, result, err, metadata)
	}()

	if d == nil || d.Store == nil {
		err = internalError(fmt.Errorf("webhooks: dispatcher requires a community store"), metadata)
		return reject(http.StatusInternalServerError, MessageInternalServerError), err
	}
	if d.Verifier == nil {
		err = signatureError(fmt.Errorf("%w: no verifier configured", ErrInvalidSignature), metadata)
		return reject(http.StatusBadRequest, MessageInvalidSignature), err
	}
	if verifyErr := d.Verifier.Verify(ctx, req); verifyErr != nil {
		err = signatureError(verifyErr, metadata)
		return reject(http.StatusBadRequest, MessageInvalidSignature), err
	}

	event, parseErr := ParseEvent(req.Body)
	if parseErr != nil {
		if errors.Is(parseErr, ErrUnhandledEvent) {
			err = unhandledEventError(parseErr, metadata)
			return reject(http.StatusBadRequest, MessageEventNotHandled), err
		}
		err = invalidDataError(parseErr, metadata)
		return reject(http.StatusBadRequest, MessageInvalidData), err
	}
	metadata["event_type"] = string(event.Kind())

	if validateErr := event.Validate(); validateErr != nil {
		err = validationError(validateErr, metadata)
		return reject(http.StatusBadRequest, MessageInvalidData), err
	}

	ctx = core.ContextWithSource(ctx, "webhook")
	result, err = d.dispatch(ctx, event)
	if err != nil {
		err = storeFailureError(err, metadata)
		return reject(http.StatusInternalServerError, MessageInternalServerError), err
	}
	return result, nil
}

// dispatch converts a store panic into an error so one bad delivery never
// takes the process down.
func (d *Dispatcher) dispatch(ctx context.Context, event Event) (result core.InboundResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("webhooks: %s handler panicked: %v", event.Kind(), recovered)
			result = core.InboundResult{}
		}
	}()
	return event.accept(ctx, d)
}

func (d *Dispatcher) HandleOrganizationCreated(ctx context.Context, event OrganizationCreated) (core.InboundResult, error) {
	_, err := d.Store.CreateCommunity(ctx, core.CreateCommunityInput{
		ID:        event.ID,
		Name:      event.Name,
		Slug:      event.Slug,
		Image:     ResolveImage(event.LogoURL, event.ImageURL),
		Bio:       d.DefaultBio,
		CreatedBy: event.CreatedBy,
	})
	if err != nil {
		return core.InboundResult{}, err
	}
	return accepted(MessageOrganizationCreated), nil
}

func (d *Dispatcher) HandleInvitationCreated(ctx context.Context, event InvitationCreated) (core.InboundResult, error) {
	d.log(ctx, "info", "invitation created", map[string]any{
		"invitation_id":   event.ID,
		"organization_id": event.OrganizationID,
		"role":            event.Role,
		"status":          event.Status,
	})
	return accepted(MessageInvitationCreated), nil
}

func (d *Dispatcher) HandleMembershipCreated(ctx context.Context, event MembershipCreated) (core.InboundResult, error) {
	err := d.Store.AddMember(ctx, core.MembershipInput{
		CommunityID: event.Organization.ID,
		UserID:      event.PublicUserData.UserID,
	})
	if err != nil {
		return core.InboundResult{}, err
	}
	return accepted(MessageMembershipCreated), nil
}

func (d *Dispatcher) HandleMembershipDeleted(ctx context.Context, event MembershipDeleted) (core.InboundResult, error) {
	err := d.Store.RemoveMember(ctx, core.MembershipInput{
		CommunityID: event.Organization.ID,
		UserID:      event.PublicUserData.UserID,
	})
	if err != nil {
		return core.InboundResult{}, err
	}
	return accepted(MessageMembershipDeleted), nil
}

// HandleOrganizationUpdated never falls back to image_url; a missing logo
// clears the stored image.
func (d *Dispatcher) HandleOrganizationUpdated(ctx context.Context, event OrganizationUpdated) (core.InboundResult, error) {
	_, err := d.Store.UpdateCommunity(ctx, core.UpdateCommunityInput{
		ID:    event.ID,
		Name:  event.Name,
		Slug:  event.Slug,
		Image: ResolveImage(event.LogoURL, ""),
	})
	if err != nil {
		return core.InboundResult{}, err
	}
	return accepted(MessageOrganizationUpdated), nil
}

func (d *Dispatcher) HandleOrganizationDeleted(ctx context.Context, event OrganizationDeleted) (core.InboundResult, error) {
	if err := d.Store.DeleteCommunity(ctx, event.ID); err != nil {
		return core.InboundResult{}, err
	}
	return accepted(MessageOrganizationDeleted), nil
}

func (d *Dispatcher) observe(
	ctx context.Context,
	startedAt time.Time,
	result core.InboundResult,
	err error,
	metadata map[string]any,
) {
	if d == nil {
		return
	}
	eventType := strings.TrimSpace(fmt.Sprint(metadata["event_type"]))
	if eventType == "" || eventType == "<nil>" {
		eventType = "unknown"
	}
	tags := map[string]string{
		"provider_id": fmt.Sprint(metadata["provider_id"]),
		"event_type":  eventType,
		"status_code": fmt.Sprint(result.StatusCode),
	}
	elapsed := d.now().Sub(startedAt)
	if d.Metrics != nil {
		d.Metrics.IncCounter(ctx, "webhooks.deliveries.total", 1, tags)
		d.Metrics.ObserveHistogram(ctx, "webhooks.deliveries.duration_ms", float64(elapsed.Milliseconds()), tags)
	}

	fields := map[string]any{}
	for key, value := range metadata {
		fields[key] = value
	}
	fields["status_code"] = result.StatusCode
	fields["duration_ms"] = elapsed.Milliseconds()
	if err == nil {
		d.log(ctx, "info", "webhook delivery handled", fields)
		return
	}
	fields["error"] = err.Error()
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		fields["text_code"] = richErr.TextCode
		if len(richErr.ValidationErrors) > 0 {
			fields["validation_errors"] = richErr.ValidationErrors.Error()
		}
	}
	level := "warn"
	if result.StatusCode >= http.StatusInternalServerError {
		level = "error"
	}
	d.log(ctx, level, "webhook delivery rejected", fields)
}

func (d *Dispatcher) log(ctx context.Context, level string, message string, fields map[string]any) {
	if d == nil || d.Logger == nil {
		return
	}
	core.LogWithFields(ctx, d.Logger, level, message, fields)
}

func (d *Dispatcher) providerID(req core.InboundRequest) string {
	if providerID := strings.TrimSpace(req.ProviderID); providerID != "" {
		return providerID
	}
	if d != nil && strings.TrimSpace(d.ProviderID) != "" {
		return strings.TrimSpace(d.ProviderID)
	}
	return ProviderClerk
}

func (d *Dispatcher) deliveryID(req core.InboundRequest) string {
	if d == nil || d.ExtractID == nil {
		return ""
	}
	deliveryID, err := d.ExtractID(req)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(deliveryID)
}

func (d *Dispatcher) now() time.Time {
	if d != nil && d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func accepted(message string) core.InboundResult {
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusCreated,
		Message:    message,
	}
}

func reject(status int, message string) core.InboundResult {
	return core.InboundResult{
		Accepted:   false,
		StatusCode: status,
		Message:    message,
	}
}

func mergeMetadata(target map[string]any, source map[string]any) map[string]any {
	target = ensureMetadata(target)
	for key, value := range source {
		if _, exists := target[key]; !exists {
			target[key] = value
		}
	}
	return target
}

var (
	_ Handler      = (*Dispatcher)(nil)
	_ EventHandler = (*Dispatcher)(nil)
	_ Verifier     = SvixVerifier{}
)
