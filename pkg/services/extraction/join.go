package extraction

import (
	"context"
	"fmt"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// queriesResult joins the rows of the given queries. The first query yields
// the base rows; every following query is merged into them either by its link
// parameter or by position.
func (c *DefaultController) queriesResult(ctx context.Context, s Scope, queries []domain.ReportQuery) ([]domain.Row, error) {
	var result []domain.Row
	for i, q := range queries {
		rows, err := c.loadQuery(ctx, s, q)
		if err != nil {
			return nil, err
		}

		if i == 0 {
			result = rows
			continue
		}

		if q.LinkParameter != "" {
			err = linkJoin(ctx, s.Band.Name, queries[0], result, q, rows)
		} else {
			err = positionalJoin(ctx, s.Band.Name, result, rows)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// linkJoin merges every linked row into the base row carrying the same link
// value. On duplicate link values in base, the first base row wins. Linked
// rows without a matching base row are dropped.
func linkJoin(
	ctx context.Context,
	band string,
	first domain.ReportQuery,
	base []domain.Row,
	q domain.ReportQuery,
	linked []domain.Row,
) error {
	link := q.LinkParameter
	index := make(map[any]domain.Row, len(base))
	for _, row := range base {
		if err := ctx.Err(); err != nil {
			return &domain.ReportingInterruptedError{Band: band, Cause: err}
		}
		v, ok := row[link]
		if !ok || v == nil {
			return &domain.DataLoadingError{
				Band:  band,
				Query: first.Name,
				Err:   fmt.Errorf("link parameter %q not found in result row", link),
			}
		}
		key := normalizeKey(v)
		if _, dup := index[key]; !dup {
			index[key] = row
		}
	}

	for _, row := range linked {
		v, ok := row[link]
		if !ok || v == nil {
			return &domain.DataLoadingError{
				Band:  band,
				Query: q.Name,
				Err:   fmt.Errorf("link parameter %q not found in result row", link),
			}
		}
		target, found := index[normalizeKey(v)]
		if !found {
			continue
		}
		for k, val := range row {
			target[k] = val
		}
	}
	return nil
}

// positionalJoin merges row i of rows into row i of base, up to the shorter
// list. Excess base rows keep their fields; excess rows are discarded.
func positionalJoin(ctx context.Context, band string, base, rows []domain.Row) error {
	n := min(len(base), len(rows))
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return &domain.ReportingInterruptedError{Band: band, Cause: err}
		}
		for k, v := range rows[i] {
			base[i][k] = v
		}
	}
	return nil
}
