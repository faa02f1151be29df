package quota

import (
	"context"
)

// Repository exposes the quota catalog.
type Repository interface {
	GetDefinitions(ctx context.Context) ([]*Definition, error)
	GetDefinition(ctx context.Context, id int) (*Definition, error)
	GetDefinitionByProductID(ctx context.Context, productID string) (*Definition, error)
	SaveDefinition(ctx context.Context, def *Definition) error
}

// PolicyChecker validates a resulting quota against deployment wide resource
// limit policy before the engine accepts it.
type PolicyChecker interface {
	CheckQuota(ctx context.Context, tenantID string, def Definition) error
}

// NoopPolicyChecker accepts every quota.
type NoopPolicyChecker struct{}

func (NoopPolicyChecker) CheckQuota(ctx context.Context, tenantID string, def Definition) error {
	return nil
}
