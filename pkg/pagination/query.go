package pagination

import (
	"context"
	"fmt"

	"github.com/JaimeStill/labrecon/pkg/query"
	"github.com/JaimeStill/labrecon/pkg/repository"
)

// Query runs the count and page statements built by qb and assembles a
// PageResult. The request must already be normalized.
func Query[T any](
	ctx context.Context,
	q repository.Querier,
	qb *query.Builder,
	page PageRequest,
	scan repository.ScanFunc[T],
) (*PageResult[T], error) {
	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, q, pageSQL, pageArgs, scan)
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}

	result := NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
