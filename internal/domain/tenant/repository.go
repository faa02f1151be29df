package tenant

import (
	"context"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
}
