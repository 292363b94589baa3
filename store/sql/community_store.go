package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goliatone/go-communities/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CommunityStore persists communities and memberships. Creates and member
// adds are insert-if-absent so replayed or reordered deliveries converge.
type CommunityStore struct {
	db          *bun.DB
	communities repository.Repository[*communityRecord]
	members     repository.Repository[*memberRecord]
	now         func() time.Time
}

func NewCommunityStore(db *bun.DB) (*CommunityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	communities := repository.NewRepository[*communityRecord](db, communityHandlers())
	if validator, ok := communities.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid community repository wiring: %w", err)
		}
	}
	members := repository.NewRepository[*memberRecord](db, memberHandlers())
	if validator, ok := members.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid member repository wiring: %w", err)
		}
	}
	return &CommunityStore{
		db:          db,
		communities: communities,
		members:     members,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *CommunityStore) CreateCommunity(ctx context.Context, in core.CreateCommunityInput) (core.Community, error) {
	if s == nil || s.db == nil {
		return core.Community{}, fmt.Errorf("sqlstore: community store is not configured")
	}
	externalID := in.ID
	if externalID == "" {
		return core.Community{}, fmt.Errorf("sqlstore: community id is required")
	}
	now := s.clock()
	record := &communityRecord{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Name:       in.Name,
		Slug:       in.Slug,
		Image:      in.Image,
		Bio:        in.Bio,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (external_id) DO NOTHING").
		Exec(ctx); err != nil {
		return core.Community{}, err
	}
	existing, err := findCommunity(ctx, s.db, externalID)
	if err != nil {
		return core.Community{}, err
	}
	return existing.toDomain(), nil
}

func (s *CommunityStore) AddMember(ctx context.Context, in core.MembershipInput) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: community store is not configured")
	}
	communityID, userID, err := normalizeMembership(in)
	if err != nil {
		return err
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := findCommunity(ctx, tx, communityID); err != nil {
			return err
		}
		record := &memberRecord{
			ID:          uuid.NewString(),
			CommunityID: communityID,
			UserID:      userID,
			CreatedAt:   s.clock(),
		}
		_, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (community_id, user_id) DO NOTHING").
			Exec(ctx)
		return err
	})
}

func (s *CommunityStore) RemoveMember(ctx context.Context, in core.MembershipInput) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: community store is not configured")
	}
	communityID, userID, err := normalizeMembership(in)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().
		Model((*memberRecord)(nil)).
		Where("community_id = ?", communityID).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (s *CommunityStore) UpdateCommunity(ctx context.Context, in core.UpdateCommunityInput) (core.Community, error) {
	if s == nil || s.communities == nil {
		return core.Community{}, fmt.Errorf("sqlstore: community store is not configured")
	}
	externalID := in.ID
	if externalID == "" {
		return core.Community{}, fmt.Errorf("sqlstore: community id is required")
	}
	current, err := findCommunity(ctx, s.db, externalID)
	if err != nil {
		return core.Community{}, err
	}
	current.Name = in.Name
	current.Slug = in.Slug
	current.Image = in.Image
	current.UpdatedAt = s.clock()

	if _, err := s.communities.Update(ctx, current, repository.UpdateByID(current.ID)); err != nil {
		return core.Community{}, err
	}
	return current.toDomain(), nil
}

// DeleteCommunity removes memberships explicitly as well so the cascade
// holds even when the driver has foreign keys disabled.
func (s *CommunityStore) DeleteCommunity(ctx context.Context, externalID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: community store is not configured")
	}
	if externalID == "" {
		return fmt.Errorf("sqlstore: community id is required")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*memberRecord)(nil)).
			Where("community_id = ?", externalID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*communityRecord)(nil)).
			Where("external_id = ?", externalID).
			Exec(ctx)
		return err
	})
}

func (s *CommunityStore) GetCommunity(ctx context.Context, id string) (core.Community, error) {
	if s == nil || s.db == nil {
		return core.Community{}, fmt.Errorf("sqlstore: community store is not configured")
	}
	record, err := findCommunity(ctx, s.db, id)
	if err != nil {
		return core.Community{}, err
	}
	return record.toDomain(), nil
}

func (s *CommunityStore) ListMembers(ctx context.Context, communityID string) ([]core.Member, error) {
	if s == nil || s.members == nil {
		return nil, fmt.Errorf("sqlstore: community store is not configured")
	}
	if _, err := findCommunity(ctx, s.db, communityID); err != nil {
		return nil, err
	}
	records, _, err := s.members.List(ctx,
		repository.SelectBy("community_id", "=", communityID),
		repository.OrderBy("user_id ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Member, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *CommunityStore) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *CommunityStore) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func findCommunity(ctx context.Context, db bun.IDB, externalID string) (*communityRecord, error) {
	if externalID == "" {
		return nil, core.ErrCommunityNotFound
	}
	record := &communityRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sqlstore: %w: %q", core.ErrCommunityNotFound, externalID)
		}
		return nil, err
	}
	return record, nil
}

func normalizeMembership(in core.MembershipInput) (string, string, error) {
	communityID := in.CommunityID
	if communityID == "" {
		return "", "", fmt.Errorf("sqlstore: community id is required")
	}
	userID := in.UserID
	if userID == "" {
		return "", "", fmt.Errorf("sqlstore: user id is required")
	}
	return communityID, userID, nil
}
