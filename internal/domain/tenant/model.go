package tenant

import (
	"time"

	"github.com/vidinfra/tariffd/internal/types"
)

// Tenant is an isolated customer portal sharing the deployment.
type Tenant struct {
	ID     string       `db:"id" json:"id"`
	Name   string       `db:"name" json:"name"`
	Status types.Status `db:"status" json:"status"`

	// PortalID is the identity the billing provider knows the tenant by.
	PortalID string `db:"portal_id" json:"portal_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	// VersionChangedAt moves whenever the tenant switches deployment version;
	// trial periods restart from the later of the two timestamps.
	VersionChangedAt time.Time `db:"version_changed_at" json:"version_changed_at"`
}
