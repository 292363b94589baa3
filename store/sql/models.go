package sqlstore

import (
	"time"

	"github.com/goliatone/go-communities/core"
	"github.com/uptrace/bun"
)

type communityRecord struct {
	bun.BaseModel `bun:"table:communities,alias:c"`

	ID         string    `bun:"id,pk"`
	ExternalID string    `bun:"external_id,notnull"`
	Name       string    `bun:"name,notnull"`
	Slug       string    `bun:"slug,notnull"`
	Image      string    `bun:"image,notnull"`
	Bio        string    `bun:"bio,notnull"`
	CreatedBy  string    `bun:"created_by,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type memberRecord struct {
	bun.BaseModel `bun:"table:community_members,alias:cm"`

	ID          string    `bun:"id,pk"`
	CommunityID string    `bun:"community_id,notnull"`
	UserID      string    `bun:"user_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *communityRecord) toDomain() core.Community {
	if r == nil {
		return core.Community{}
	}
	return core.Community{
		ID:        r.ExternalID,
		Name:      r.Name,
		Slug:      r.Slug,
		Image:     r.Image,
		Bio:       r.Bio,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r *memberRecord) toDomain() core.Member {
	if r == nil {
		return core.Member{}
	}
	return core.Member{
		CommunityID: r.CommunityID,
		UserID:      r.UserID,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}
