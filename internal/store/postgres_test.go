package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okfde/froide-legalaction/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_CreateDecision(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO decisions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	d := &model.Decision{
		Reference:    "9 CN 1/01",
		ECLI:         "ECLI:DE:BVerwG:2002:170402.U.9CN1.01.0",
		DecisionType: model.DecisionRuling,
	}
	err := s.CreateDecision(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, int64(42), d.ID)
	assert.False(t, d.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDecision_UniqueViolation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO decisions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "decisions_ecli_key"})

	err := s.CreateDecision(context.Background(), &model.Decision{ECLI: "ECLI:DE:XYZ:2020:1"})
	require.Error(t, err)
	uv, ok := err.(*UniqueViolationError)
	require.True(t, ok)
	assert.Equal(t, "ecli", uv.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindExisting_NoKeys(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	d, err := s.FindExisting(context.Background(), MatchKey{})
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindExisting_ECLINotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM decisions WHERE ecli = \$1`).
		WithArgs("ECLI:DE:BGH:2020:NOPE").
		WillReturnError(pgx.ErrNoRows)

	d, err := s.FindExisting(context.Background(), MatchKey{ECLI: "ECLI:DE:BGH:2020:NOPE"})
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindExisting_ReferenceTriple(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	date := time.Date(2002, 4, 17, 0, 0, 0, 0, time.UTC)
	courtID := int64(3)

	mock.ExpectQuery(`reference = \$1 AND date = \$2 AND court_id = \$3`).
		WithArgs("9 CN 1/01", date, courtID).
		WillReturnError(pgx.ErrNoRows)

	d, err := s.FindExisting(context.Background(), MatchKey{
		Reference: "9 CN 1/01",
		Date:      &date,
		CourtID:   &courtID,
	})
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDecisionBySlug_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM decisions WHERE slug = \$1`).
		WithArgs("no-such-decision").
		WillReturnError(pgx.ErrNoRows)

	d, err := s.GetDecisionBySlug(context.Background(), "no-such-decision")
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountDecisions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM decisions`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(17)))

	n, err := s.CountDecisions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateSearchText_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE decisions SET search_text`).
		WithArgs("some text", pgxmock.AnyArg(), int64(999)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSearchText(context.Background(), 999, "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCourtByName_Ambiguous(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// Two prefix matches, then two substring matches. Both ambiguous.
	prefixRows := pgxmock.NewRows([]string{"id", "name", "aliases", "jurisdiction_slug", "ecli_court_code"}).
		AddRow(int64(1), "Verwaltungsgericht Berlin", []byte(`[]`), "berlin", "").
		AddRow(int64(2), "Verwaltungsgericht Potsdam", []byte(`[]`), "brandenburg", "")
	mock.ExpectQuery(`FROM courts WHERE name ILIKE`).
		WithArgs("Verwaltungsgericht").
		WillReturnRows(prefixRows)

	substrRows := pgxmock.NewRows([]string{"id", "name", "aliases", "jurisdiction_slug", "ecli_court_code"}).
		AddRow(int64(1), "Verwaltungsgericht Berlin", []byte(`[]`), "berlin", "").
		AddRow(int64(2), "Verwaltungsgericht Potsdam", []byte(`[]`), "brandenburg", "")
	mock.ExpectQuery(`FROM courts WHERE \(name ILIKE`).
		WithArgs("Verwaltungsgericht").
		WillReturnRows(substrRows)

	court, err := s.FindCourtByName(context.Background(), "Verwaltungsgericht", "")
	require.NoError(t, err)
	assert.Nil(t, court)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCourtByName_PrefixHit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "name", "aliases", "jurisdiction_slug", "ecli_court_code"}).
		AddRow(int64(7), "Bundesverwaltungsgericht", []byte(`["BVerwG"]`), "", "BVerwG")
	mock.ExpectQuery(`FROM courts WHERE name ILIKE`).
		WithArgs("Bundesverwaltungsgericht").
		WillReturnRows(rows)

	court, err := s.FindCourtByName(context.Background(), "Bundesverwaltungsgericht", "")
	require.NoError(t, err)
	require.NotNil(t, court)
	assert.Equal(t, "BVerwG", court.ECLICourtCode)
	assert.Equal(t, []string{"BVerwG"}, court.Aliases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOrCreateTag_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, slug FROM tags WHERE name = \$1`).
		WithArgs("Versammlungsrecht").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug"}).
			AddRow(int64(5), "Versammlungsrecht", "versammlungsrecht"))

	tag, err := s.FindOrCreateTag(context.Background(), "Versammlungsrecht", "versammlungsrecht")
	require.NoError(t, err)
	assert.Equal(t, int64(5), tag.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOrCreateTag_Creates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, slug FROM tags WHERE name = \$1`).
		WithArgs("Pressefreiheit").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("Pressefreiheit", "pressefreiheit").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))

	tag, err := s.FindOrCreateTag(context.Background(), "Pressefreiheit", "pressefreiheit")
	require.NoError(t, err)
	assert.Equal(t, int64(9), tag.ID)
	assert.Equal(t, "pressefreiheit", tag.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS courts`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUniqueViolation_Mapping(t *testing.T) {
	assert.Nil(t, postgresUniqueViolation(pgx.ErrNoRows))
	assert.Nil(t, postgresUniqueViolation(&pgconn.PgError{Code: "23503"}))

	uv := postgresUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "decisions_slug_key"})
	require.NotNil(t, uv)
	assert.Equal(t, "slug", uv.Field)
}

func TestPostgresStore_CountByLoader(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"loader", "count"}).
		AddRow("berlin", int64(3)).
		AddRow("brandenburg", int64(2))
	mock.ExpectQuery(`source_data->>'loader'`).WillReturnRows(rows)

	counts, err := s.CountByLoader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"berlin": 3, "brandenburg": 2}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindExisting_NullDate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`reference = \$1 AND date IS NULL AND court_id IS NULL`).
		WithArgs("10 C 5/21").
		WillReturnError(pgx.ErrNoRows)

	d, err := s.FindExisting(context.Background(), MatchKey{Reference: "10 C 5/21"})
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}
