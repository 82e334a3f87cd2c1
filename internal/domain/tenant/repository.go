package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("tenant not found")
	ErrNotMember = errors.New("user is not a member of tenant")
	ErrSlugTaken = errors.New("tenant slug already taken")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	GetBySlug(ctx context.Context, slug string) (Tenant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetMembership(ctx context.Context, slug string, userID uuid.UUID) (Membership, error)
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (Tenant, error)
}
