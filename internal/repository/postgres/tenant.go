package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/vidinfra/tariffd/internal/domain/tenant"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/logger"
)

type tenantRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

func NewTenantRepository(db *sqlx.DB, log *logger.Logger) tenant.Repository {
	return &tenantRepository{db: db, log: log}
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.GetContext(ctx, &t,
		`SELECT id, name, status, portal_id, created_at, version_changed_at
		 FROM tenants WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("tenant not found").
			WithHintf("no tenant with id %s", id).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to load tenant %s", id).
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}
