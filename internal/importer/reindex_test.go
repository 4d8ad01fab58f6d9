package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okfde/froide-legalaction/internal/model"
	"github.com/okfde/froide-legalaction/internal/store"
)

func TestReindex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	date := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, ref := range []string{"1 K 1/20", "2 K 2/20", "3 K 3/20"} {
		d := &model.Decision{
			Reference: ref,
			Abstract:  "Zusammenfassung zu " + ref,
			Date:      &date,
		}
		require.NoError(t, s.CreateDecision(ctx, d))
	}

	n, err := Reindex(ctx, s, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The rebuilt corpus makes the abstract findable.
	found, err := s.ListDecisions(ctx, store.DecisionFilter{Query: "Zusammenfassung"})
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestReindex_EmptyStore(t *testing.T) {
	s := newTestStore(t)

	n, err := Reindex(context.Background(), s, 4)
	require.NoError(t, err)
	assert.Zero(t, n)
}
