package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-communities/core"
)

type EventKind string

const (
	KindOrganizationCreated EventKind = "organization.created"
	KindInvitationCreated   EventKind = "organizationInvitation.created"
	KindMembershipCreated   EventKind = "organizationMembership.created"
	KindMembershipDeleted   EventKind = "organizationMembership.deleted"
	KindOrganizationUpdated EventKind = "organization.updated"
	KindOrganizationDeleted EventKind = "organization.deleted"
)

var (
	ErrInvalidData      = errors.New("webhooks: invalid event data")
	ErrUnhandledEvent   = errors.New("webhooks: event type not handled")
	ErrInvalidSignature = errors.New("webhooks: invalid webhook signature")
)

// Envelope is the signed JSON document the identity provider delivers.
type Envelope struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

// Event is the closed set of recognized deliveries. The unexported accept
// method keeps the set closed to this package.
type Event interface {
	Kind() EventKind
	Validate() error
	accept(ctx context.Context, handler EventHandler) (core.InboundResult, error)
}

// EventHandler has one method per Event variant. Adding a variant without
// extending this interface and its implementations fails to compile.
type EventHandler interface {
	HandleOrganizationCreated(ctx context.Context, event OrganizationCreated) (core.InboundResult, error)
	HandleInvitationCreated(ctx context.Context, event InvitationCreated) (core.InboundResult, error)
	HandleMembershipCreated(ctx context.Context, event MembershipCreated) (core.InboundResult, error)
	HandleMembershipDeleted(ctx context.Context, event MembershipDeleted) (core.InboundResult, error)
	HandleOrganizationUpdated(ctx context.Context, event OrganizationUpdated) (core.InboundResult, error)
	HandleOrganizationDeleted(ctx context.Context, event OrganizationDeleted) (core.InboundResult, error)
}

type OrganizationCreated struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	LogoURL   string `json:"logo_url"`
	ImageURL  string `json:"image_url"`
	CreatedBy string `json:"created_by"`
}

type InvitationCreated struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	EmailAddress   string `json:"email_address"`
	Role           string `json:"role"`
	Status         string `json:"status"`
}

type OrganizationRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug,omitempty"`
}

type PublicUserData struct {
	UserID     string `json:"user_id"`
	Identifier string `json:"identifier,omitempty"`
}

type Membership struct {
	ID             string          `json:"id"`
	Role           string          `json:"role"`
	Organization   OrganizationRef `json:"organization"`
	PublicUserData PublicUserData  `json:"public_user_data"`
}

type MembershipCreated struct {
	Membership
}

type MembershipDeleted struct {
	Membership
}

type OrganizationUpdated struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	LogoURL string `json:"logo_url"`
}

type OrganizationDeleted struct {
	ID string `json:"id"`
}

func (OrganizationCreated) Kind() EventKind { return KindOrganizationCreated }
func (InvitationCreated) Kind() EventKind   { return KindInvitationCreated }
func (MembershipCreated) Kind() EventKind   { return KindMembershipCreated }
func (MembershipDeleted) Kind() EventKind   { return KindMembershipDeleted }
func (OrganizationUpdated) Kind() EventKind { return KindOrganizationUpdated }
func (OrganizationDeleted) Kind() EventKind { return KindOrganizationDeleted }

func (e OrganizationCreated) accept(ctx context.Context, h EventHandler) (core.InboundResult, error) {
	return h.HandleOrganizationCreated(ctx, e)
}

func (e InvitationCreated) accept(ctx context.Context, h EventHandler) (core.InboundResult, error) {
	return h.HandleInvitationCreated(ctx, e)
}

func (e MembershipCreated) accept(ctx context.Context, h EventHandler) (core.InboundResult, error) {
	return h.HandleMembershipCreated(ctx, e)
}

func (e MembershipDeleted) accept(ctx context.Context, h EventHandler) (core.InboundResult, error) {
	return h.HandleMembershipDeleted(ctx, e)
}

func (e OrganizationUpdated) accept(ctx context.Context, h EventHandler) (core.InboundResult, error) {
	return h.HandleOrganizationUpdated(ctx, e)
}

func (e OrganizationDeleted) accept(ctx context.Context, h EventHandler) (core.InboundResult, error) {
	return h.HandleOrganizationDeleted(ctx, e)
}

var decoders = map[EventKind]func(json.RawMessage) (Event, error){
	KindOrganizationCreated: decodeAs[OrganizationCreated],
	KindInvitationCreated:   decodeAs[InvitationCreated],
	KindMembershipCreated:   decodeAs[MembershipCreated],
	KindMembershipDeleted:   decodeAs[MembershipDeleted],
	KindOrganizationUpdated: decodeAs[OrganizationUpdated],
	KindOrganizationDeleted: decodeAs[OrganizationDeleted],
}

// ParseEvent decodes body into its variant. It returns ErrInvalidData when
// the envelope or its data cannot be decoded and ErrUnhandledEvent when the
// type is empty or unknown. Field validation is left to Event.Validate.
func ParseEvent(body []byte) (Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidData)
	}
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	kind := EventKind(strings.TrimSpace(envelope.Type))
	decode, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnhandledEvent, envelope.Type)
	}
	event, err := decode(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidData, kind, err)
	}
	return event, nil
}

func decodeAs[T Event](data json.RawMessage) (Event, error) {
	var event T
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return event, nil
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return event, nil
}

// ResolveImage picks the first non-empty of the logo and the image URL.
func ResolveImage(logoURL, imageURL string) string {
	if logoURL != "" {
		return logoURL
	}
	return imageURL
}
