package reconciliations

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/labrecon/pkg/pagination"
)

// System defines the public contract for running and keeping
// reconciliations.
type System interface {
	Handler() *Handler

	// Run reconciles the command's rows and stores the result. Identical
	// input against the same alias snapshot and thresholds returns the
	// existing completed record with Deduplicated set.
	Run(ctx context.Context, cmd RunCommand) (*Reconciliation, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Reconciliation], error)

	// Find returns the record with its result and current resolutions.
	Find(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	Resolve(ctx context.Context, id uuid.UUID, ref string, cmd ResolveCommand) (*Reconciliation, error)
	Archive(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
}
