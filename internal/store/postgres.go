package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/okfde/froide-legalaction/internal/db"
	"github.com/okfde/froide-legalaction/internal/model"
)

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS courts (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT NOT NULL,
	aliases           JSONB NOT NULL DEFAULT '[]',
	jurisdiction_slug TEXT NOT NULL DEFAULT '',
	ecli_court_code   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS laws (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tags (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id           BIGSERIAL PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	path         TEXT NOT NULL,
	sha256       TEXT NOT NULL,
	size         BIGINT NOT NULL DEFAULT 0,
	published_at DATE
);

CREATE TABLE IF NOT EXISTS decisions (
	id                BIGSERIAL PRIMARY KEY,
	slug              TEXT UNIQUE,
	title             TEXT NOT NULL DEFAULT '',
	abstract          TEXT NOT NULL DEFAULT '',
	guiding_principle TEXT NOT NULL DEFAULT '',
	fulltext          TEXT NOT NULL DEFAULT '',
	outcome           TEXT NOT NULL DEFAULT '',
	reference         TEXT NOT NULL DEFAULT '',
	ecli              TEXT UNIQUE,
	decision_type     TEXT NOT NULL DEFAULT '',
	date              DATE,
	court_id          BIGINT REFERENCES courts(id),
	court_name        TEXT NOT NULL DEFAULT '',
	law_name          TEXT NOT NULL DEFAULT '',
	source_url        TEXT NOT NULL DEFAULT '',
	source_data       JSONB,
	document_id       BIGINT REFERENCES documents(id),
	search_text       TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decision_tags (
	decision_id BIGINT NOT NULL REFERENCES decisions(id),
	tag_id      BIGINT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (decision_id, tag_id)
);

CREATE TABLE IF NOT EXISTS decision_laws (
	decision_id BIGINT NOT NULL REFERENCES decisions(id),
	law_id      BIGINT NOT NULL REFERENCES laws(id),
	PRIMARY KEY (decision_id, law_id)
);

CREATE INDEX IF NOT EXISTS idx_decisions_reference ON decisions(reference, date, court_id);
CREATE INDEX IF NOT EXISTS idx_decisions_source_url ON decisions(source_url);
CREATE INDEX IF NOT EXISTS idx_decisions_search ON decisions
	USING GIN (to_tsvector('german', search_text));
CREATE INDEX IF NOT EXISTS idx_courts_name ON courts(name);
CREATE INDEX IF NOT EXISTS idx_tags_slug ON tags(slug);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateDecision(ctx context.Context, d *model.Decision) error {
	sourceJSON, err := marshalSourceData(d.SourceData)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal source data")
	}
	now := time.Now().UTC()

	err = s.pool.QueryRow(ctx,
		`INSERT INTO decisions (slug, title, abstract, guiding_principle, fulltext, outcome,
			reference, ecli, decision_type, date, court_id, court_name, law_name,
			source_url, source_data, document_id, search_text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING id`,
		nullIfEmpty(d.Slug), d.Title, d.Abstract, d.GuidingPrinciple, d.Fulltext, d.Outcome,
		d.Reference, nullIfEmpty(d.ECLI), string(d.DecisionType), d.Date,
		d.CourtID, d.CourtName, d.LawName,
		d.SourceURL, sourceJSON, d.DocumentID, d.SearchText, now, now,
	).Scan(&d.ID)
	if err != nil {
		if uv := postgresUniqueViolation(err); uv != nil {
			return uv
		}
		return eris.Wrap(err, "postgres: insert decision")
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

func (s *PostgresStore) UpdateDecision(ctx context.Context, d *model.Decision) error {
	sourceJSON, err := marshalSourceData(d.SourceData)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal source data")
	}
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE decisions SET slug = $1, title = $2, abstract = $3, guiding_principle = $4,
			fulltext = $5, outcome = $6, reference = $7, ecli = $8, decision_type = $9, date = $10,
			court_id = $11, court_name = $12, law_name = $13, source_url = $14, source_data = $15,
			document_id = $16, search_text = $17, updated_at = $18
		 WHERE id = $19`,
		nullIfEmpty(d.Slug), d.Title, d.Abstract, d.GuidingPrinciple,
		d.Fulltext, d.Outcome, d.Reference, nullIfEmpty(d.ECLI), string(d.DecisionType), d.Date,
		d.CourtID, d.CourtName, d.LawName, d.SourceURL, sourceJSON,
		d.DocumentID, d.SearchText, now, d.ID,
	)
	if err != nil {
		if uv := postgresUniqueViolation(err); uv != nil {
			return uv
		}
		return eris.Wrapf(err, "postgres: update decision %d", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("decision not found: %d", d.ID)
	}
	d.UpdatedAt = now
	return nil
}

func (s *PostgresStore) FindExisting(ctx context.Context, key MatchKey) (*model.Decision, error) {
	if key.ECLI != "" {
		if d, err := s.findDecision(ctx, `ecli = $1`, key.ECLI); d != nil || err != nil {
			return d, err
		}
	}
	if key.Slug != "" {
		if d, err := s.findDecision(ctx, `slug = $1`, key.Slug); d != nil || err != nil {
			return d, err
		}
	}
	if key.SourceURL != "" {
		if d, err := s.findDecision(ctx, `source_url = $1`, key.SourceURL); d != nil || err != nil {
			return d, err
		}
	}
	if key.Reference != "" {
		where := `reference = $1`
		args := []any{key.Reference}
		if key.Date != nil {
			args = append(args, *key.Date)
			where += ` AND date = $` + strconv.Itoa(len(args))
		} else {
			where += ` AND date IS NULL`
		}
		if key.CourtID != nil {
			args = append(args, *key.CourtID)
			where += ` AND court_id = $` + strconv.Itoa(len(args))
		} else {
			where += ` AND court_id IS NULL`
		}
		return s.findDecision(ctx, where, args...)
	}
	return nil, nil
}

func (s *PostgresStore) GetDecisionBySlug(ctx context.Context, slug string) (*model.Decision, error) {
	return s.findDecision(ctx, `slug = $1`, slug)
}

func (s *PostgresStore) findDecision(ctx context.Context, where string, args ...any) (*model.Decision, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	d, err := scanPgDecision(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find decision")
	}
	if err := s.loadRelations(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *PostgresStore) ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Query != "" {
		query += ` AND to_tsvector('german', search_text) @@ websearch_to_tsquery('german', ` + arg(filter.Query) + `)`
	}
	if filter.CourtID != nil {
		query += ` AND court_id = ` + arg(*filter.CourtID)
	}
	if filter.DecisionType != "" {
		query += ` AND decision_type = ` + arg(string(filter.DecisionType))
	}
	if filter.TagSlug != "" {
		query += ` AND id IN (SELECT decision_id FROM decision_tags
			JOIN tags ON tags.id = decision_tags.tag_id WHERE tags.slug = ` + arg(filter.TagSlug) + `)`
	}
	if filter.Incomplete {
		query += ` AND ` + incompleteCondition
	}
	query += ` ORDER BY date DESC NULLS LAST, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decisions")
	}
	defer rows.Close()

	var decisions []model.Decision
	for rows.Next() {
		d, err := scanPgDecision(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		decisions = append(decisions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list decisions iterate")
	}

	for i := range decisions {
		if err := s.loadRelations(ctx, &decisions[i]); err != nil {
			return nil, err
		}
	}
	return decisions, nil
}

func (s *PostgresStore) CountDecisions(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count decisions")
}

func (s *PostgresStore) CountIncomplete(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM decisions WHERE `+incompleteCondition).Scan(&n)
	return n, eris.Wrap(err, "postgres: count incomplete")
}

func (s *PostgresStore) CountByLoader(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(source_data->>'loader', ''), COUNT(*)
		 FROM decisions GROUP BY 1`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by loader")
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan loader count")
		}
		counts[name] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count by loader iterate")
}

func (s *PostgresStore) UpdateSearchText(ctx context.Context, decisionID int64, text string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE decisions SET search_text = $1, updated_at = $2 WHERE id = $3`,
		text, time.Now().UTC(), decisionID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update search text %d", decisionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("decision not found: %d", decisionID)
	}
	return nil
}

// Courts

func (s *PostgresStore) CreateCourt(ctx context.Context, c *model.Court) error {
	aliasesJSON, err := json.Marshal(c.Aliases)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal aliases")
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO courts (name, aliases, jurisdiction_slug, ecli_court_code)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, aliasesJSON, c.JurisdictionSlug, c.ECLICourtCode,
	).Scan(&c.ID)
	return eris.Wrap(err, "postgres: insert court")
}

func (s *PostgresStore) FindCourtByName(ctx context.Context, name, jurisdiction string) (*model.Court, error) {
	court, err := s.findCourtWhere(ctx, `name ILIKE $1 || '%'`, []any{name}, jurisdiction)
	if court != nil || err != nil {
		return court, err
	}
	return s.findCourtWhere(ctx,
		`(name ILIKE '%' || $1 || '%' OR aliases::text ILIKE '%' || $1 || '%')`,
		[]any{name}, jurisdiction)
}

func (s *PostgresStore) findCourtWhere(ctx context.Context, where string, args []any, jurisdiction string) (*model.Court, error) {
	query := `SELECT id, name, aliases, jurisdiction_slug, ecli_court_code FROM courts WHERE ` + where
	if jurisdiction != "" {
		args = append(args, jurisdiction)
		query += ` AND jurisdiction_slug = $` + strconv.Itoa(len(args))
	}
	query += ` LIMIT 2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find court")
	}
	defer rows.Close()

	var courts []model.Court
	for rows.Next() {
		var c model.Court
		var aliasesJSON []byte
		if err := rows.Scan(&c.ID, &c.Name, &aliasesJSON, &c.JurisdictionSlug, &c.ECLICourtCode); err != nil {
			return nil, eris.Wrap(err, "postgres: scan court")
		}
		if err := json.Unmarshal(aliasesJSON, &c.Aliases); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal aliases")
		}
		courts = append(courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: find court iterate")
	}
	if len(courts) != 1 {
		return nil, nil
	}
	return &courts[0], nil
}

// Laws

func (s *PostgresStore) CreateLaw(ctx context.Context, l *model.Law) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO laws (name, slug) VALUES ($1, $2) RETURNING id`, l.Name, l.Slug).Scan(&l.ID)
	return eris.Wrap(err, "postgres: insert law")
}

func (s *PostgresStore) FindLawByName(ctx context.Context, name string) (*model.Law, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, slug FROM laws WHERE LOWER(name) = LOWER($1) LIMIT 1`, name)
	var l model.Law
	err := row.Scan(&l.ID, &l.Name, &l.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find law")
	}
	return &l, nil
}

func (s *PostgresStore) AddDecisionLaw(ctx context.Context, decisionID, lawID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decision_laws (decision_id, law_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		decisionID, lawID)
	return eris.Wrap(err, "postgres: add decision law")
}

// Tags

func (s *PostgresStore) FindOrCreateTag(ctx context.Context, name, slug string) (*model.Tag, error) {
	var t model.Tag
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug FROM tags WHERE name = $1 LIMIT 1`, name).Scan(&t.ID, &t.Name, &t.Slug)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: find tag")
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO tags (name, slug) VALUES ($1, $2) RETURNING id`, name, slug).Scan(&t.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert tag")
	}
	t.Name = name
	t.Slug = slug
	return &t, nil
}

func (s *PostgresStore) AddDecisionTag(ctx context.Context, decisionID, tagID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decision_tags (decision_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		decisionID, tagID)
	return eris.Wrap(err, "postgres: add decision tag")
}

func (s *PostgresStore) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, slug FROM tags ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tags")
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tag")
		}
		tags = append(tags, t)
	}
	return tags, eris.Wrap(rows.Err(), "postgres: list tags iterate")
}

// Documents

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (title, path, sha256, size, published_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		doc.Title, doc.Path, doc.SHA256, doc.Size, doc.PublishedAt).Scan(&doc.ID)
	return eris.Wrap(err, "postgres: insert document")
}

func (s *PostgresStore) SetDecisionDocument(ctx context.Context, decisionID, documentID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE decisions SET document_id = $1, updated_at = $2 WHERE id = $3`,
		documentID, time.Now().UTC(), decisionID)
	if err != nil {
		return eris.Wrapf(err, "postgres: set document for decision %d", decisionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("decision not found: %d", decisionID)
	}
	return nil
}

// helpers

func (s *PostgresStore) loadRelations(ctx context.Context, d *model.Decision) error {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name, t.slug FROM tags t
		 JOIN decision_tags dt ON dt.tag_id = t.id WHERE dt.decision_id = $1 ORDER BY t.name`,
		d.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: load tags")
	}
	defer rows.Close()
	d.Tags = nil
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return eris.Wrap(err, "postgres: scan tag")
		}
		d.Tags = append(d.Tags, t)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "postgres: load tags iterate")
	}

	lawRows, err := s.pool.Query(ctx,
		`SELECT l.id, l.name, l.slug FROM laws l
		 JOIN decision_laws dl ON dl.law_id = l.id WHERE dl.decision_id = $1 ORDER BY l.name`,
		d.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: load laws")
	}
	defer lawRows.Close()
	d.Laws = nil
	for lawRows.Next() {
		var l model.Law
		if err := lawRows.Scan(&l.ID, &l.Name, &l.Slug); err != nil {
			return eris.Wrap(err, "postgres: scan law")
		}
		d.Laws = append(d.Laws, l)
	}
	return eris.Wrap(lawRows.Err(), "postgres: load laws iterate")
}

func scanPgDecision(row pgx.Row) (*model.Decision, error) {
	var d model.Decision
	var slug, ecli *string
	var date *time.Time
	var sourceJSON []byte
	var courtID, documentID *int64

	err := row.Scan(&d.ID, &slug, &d.Title, &d.Abstract, &d.GuidingPrinciple, &d.Fulltext,
		&d.Outcome, &d.Reference, &ecli, &d.DecisionType, &date, &courtID, &d.CourtName,
		&d.LawName, &d.SourceURL, &sourceJSON, &documentID, &d.SearchText,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if slug != nil {
		d.Slug = *slug
	}
	if ecli != nil {
		d.ECLI = *ecli
	}
	d.Date = date
	d.CourtID = courtID
	d.DocumentID = documentID
	if len(sourceJSON) > 0 {
		if err := json.Unmarshal(sourceJSON, &d.SourceData); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal source data")
		}
	}
	return &d, nil
}

// postgresUniqueViolation maps a 23505 error on the decisions unique indexes
// to a *UniqueViolationError.
func postgresUniqueViolation(err error) *UniqueViolationError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "decisions_ecli_key":
		return &UniqueViolationError{Field: "ecli"}
	case "decisions_slug_key":
		return &UniqueViolationError{Field: "slug"}
	default:
		return &UniqueViolationError{Field: "unknown"}
	}
}
