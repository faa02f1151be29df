package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/vidinfra/tariffd/internal/domain/quota"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/logger"
)

type quotaRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

func NewQuotaRepository(db *sqlx.DB, log *logger.Logger) quota.Repository {
	return &quotaRepository{db: db, log: log}
}

const quotaColumns = `id, name, product_id, price, seats, storage_bytes, room_count,
	trial, free, custom, non_profit, lifetime, wallet, visible`

func (r *quotaRepository) GetDefinitions(ctx context.Context) ([]*quota.Definition, error) {
	var defs []*quota.Definition
	err := r.db.SelectContext(ctx, &defs,
		`SELECT `+quotaColumns+` FROM quota_definitions ORDER BY id`)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list quota definitions").
			Mark(ierr.ErrDatabase)
	}
	return defs, nil
}

func (r *quotaRepository) GetDefinition(ctx context.Context, id int) (*quota.Definition, error) {
	var def quota.Definition
	err := r.db.GetContext(ctx, &def,
		`SELECT `+quotaColumns+` FROM quota_definitions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("quota definition not found").
			WithHintf("no quota definition with id %d", id).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to load quota definition %d", id).
			Mark(ierr.ErrDatabase)
	}
	return &def, nil
}

func (r *quotaRepository) GetDefinitionByProductID(ctx context.Context, productID string) (*quota.Definition, error) {
	var def quota.Definition
	err := r.db.GetContext(ctx, &def,
		`SELECT `+quotaColumns+` FROM quota_definitions WHERE product_id = $1`, productID)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("quota definition not found").
			WithHintf("no quota definition maps product %s", productID).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to load quota definition for product %s", productID).
			Mark(ierr.ErrDatabase)
	}
	return &def, nil
}

func (r *quotaRepository) SaveDefinition(ctx context.Context, def *quota.Definition) error {
	if def == nil {
		return ierr.NewError("nil quota definition").
			WithHint("quota definition is required").
			Mark(ierr.ErrValidation)
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO quota_definitions (`+quotaColumns+`)
		 VALUES (:id, :name, :product_id, :price, :seats, :storage_bytes, :room_count,
		         :trial, :free, :custom, :non_profit, :lifetime, :wallet, :visible)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   product_id = EXCLUDED.product_id,
		   price = EXCLUDED.price,
		   seats = EXCLUDED.seats,
		   storage_bytes = EXCLUDED.storage_bytes,
		   room_count = EXCLUDED.room_count,
		   trial = EXCLUDED.trial,
		   free = EXCLUDED.free,
		   custom = EXCLUDED.custom,
		   non_profit = EXCLUDED.non_profit,
		   lifetime = EXCLUDED.lifetime,
		   wallet = EXCLUDED.wallet,
		   visible = EXCLUDED.visible`, def)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("failed to save quota definition %d", def.ID).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
