package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func communityHandlers() repository.ModelHandlers[*communityRecord] {
	return repository.ModelHandlers[*communityRecord]{
		NewRecord: func() *communityRecord {
			return &communityRecord{}
		},
		GetID: func(record *communityRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *communityRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "external_id"
		},
		GetIdentifierValue: func(record *communityRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ExternalID)
		},
	}
}

func memberHandlers() repository.ModelHandlers[*memberRecord] {
	return repository.ModelHandlers[*memberRecord]{
		NewRecord: func() *memberRecord {
			return &memberRecord{}
		},
		GetID: func(record *memberRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *memberRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *memberRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
