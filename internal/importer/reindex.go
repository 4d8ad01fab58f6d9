package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/okfde/froide-legalaction/internal/store"
)

const reindexPageSize = 200

// Reindex rebuilds the search text of every stored decision. Decisions are
// independent rows, so the rebuild runs with bounded concurrency. Returns the
// number of decisions reindexed.
func Reindex(ctx context.Context, s store.Store, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	total := 0
	for offset := 0; ; offset += reindexPageSize {
		decisions, err := s.ListDecisions(ctx, store.DecisionFilter{
			Limit:  reindexPageSize,
			Offset: offset,
		})
		if err != nil {
			return total, eris.Wrap(err, "reindex: list decisions")
		}
		if len(decisions) == 0 {
			break
		}

		for _, d := range decisions {
			d := d
			g.Go(func() error {
				if err := s.UpdateSearchText(ctx, d.ID, d.GenerateSearchText()); err != nil {
					return eris.Wrapf(err, "reindex: decision %d", d.ID)
				}
				return nil
			})
		}
		total += len(decisions)

		if len(decisions) < reindexPageSize {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return total, err
	}

	zap.L().Info("search text reindexed", zap.Int("decisions", total))
	return total, nil
}
