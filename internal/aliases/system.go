package aliases

import (
	"context"

	"github.com/JaimeStill/labrecon/internal/engine"
	"github.com/JaimeStill/labrecon/pkg/pagination"
)

// System defines the public contract for the database-backed alias table.
// It is also the engine.AliasSource for runs when aliases live in the
// database.
type System interface {
	engine.AliasSource

	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Alias], error)

	Upsert(ctx context.Context, cmd UpsertCommand) (*Alias, error)
	Delete(ctx context.Context, alias string) error
}
