package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/okfde/froide-legalaction/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS courts (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL,
	aliases           TEXT NOT NULL DEFAULT '[]',
	jurisdiction_slug TEXT NOT NULL DEFAULT '',
	ecli_court_code   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS laws (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL DEFAULT '',
	path         TEXT NOT NULL,
	sha256       TEXT NOT NULL,
	size         INTEGER NOT NULL DEFAULT 0,
	published_at TEXT
);

CREATE TABLE IF NOT EXISTS decisions (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	slug              TEXT UNIQUE,
	title             TEXT NOT NULL DEFAULT '',
	abstract          TEXT NOT NULL DEFAULT '',
	guiding_principle TEXT NOT NULL DEFAULT '',
	fulltext          TEXT NOT NULL DEFAULT '',
	outcome           TEXT NOT NULL DEFAULT '',
	reference         TEXT NOT NULL DEFAULT '',
	ecli              TEXT UNIQUE,
	decision_type     TEXT NOT NULL DEFAULT '',
	date              TEXT,
	court_id          INTEGER REFERENCES courts(id),
	court_name        TEXT NOT NULL DEFAULT '',
	law_name          TEXT NOT NULL DEFAULT '',
	source_url        TEXT NOT NULL DEFAULT '',
	source_data       TEXT,
	document_id       INTEGER REFERENCES documents(id),
	search_text       TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS decision_tags (
	decision_id INTEGER NOT NULL REFERENCES decisions(id),
	tag_id      INTEGER NOT NULL REFERENCES tags(id),
	PRIMARY KEY (decision_id, tag_id)
);

CREATE TABLE IF NOT EXISTS decision_laws (
	decision_id INTEGER NOT NULL REFERENCES decisions(id),
	law_id      INTEGER NOT NULL REFERENCES laws(id),
	PRIMARY KEY (decision_id, law_id)
);

CREATE INDEX IF NOT EXISTS idx_decisions_reference ON decisions(reference, date, court_id);
CREATE INDEX IF NOT EXISTS idx_decisions_source_url ON decisions(source_url);
CREATE INDEX IF NOT EXISTS idx_courts_name ON courts(name);
CREATE INDEX IF NOT EXISTS idx_tags_slug ON tags(slug);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const decisionColumns = `id, slug, title, abstract, guiding_principle, fulltext, outcome,
	reference, ecli, decision_type, date, court_id, court_name, law_name,
	source_url, source_data, document_id, search_text, created_at, updated_at`

func (s *SQLiteStore) CreateDecision(ctx context.Context, d *model.Decision) error {
	sourceJSON, err := marshalSourceData(d.SourceData)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal source data")
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (slug, title, abstract, guiding_principle, fulltext, outcome,
			reference, ecli, decision_type, date, court_id, court_name, law_name,
			source_url, source_data, document_id, search_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(d.Slug), d.Title, d.Abstract, d.GuidingPrinciple, d.Fulltext, d.Outcome,
		d.Reference, nullIfEmpty(d.ECLI), string(d.DecisionType), formatDate(d.Date),
		d.CourtID, d.CourtName, d.LawName,
		d.SourceURL, sourceJSON, d.DocumentID, d.SearchText, now, now,
	)
	if err != nil {
		if uv := sqliteUniqueViolation(err); uv != nil {
			return uv
		}
		return eris.Wrap(err, "sqlite: insert decision")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	d.ID = id
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) UpdateDecision(ctx context.Context, d *model.Decision) error {
	sourceJSON, err := marshalSourceData(d.SourceData)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal source data")
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET slug = ?, title = ?, abstract = ?, guiding_principle = ?,
			fulltext = ?, outcome = ?, reference = ?, ecli = ?, decision_type = ?, date = ?,
			court_id = ?, court_name = ?, law_name = ?, source_url = ?, source_data = ?,
			document_id = ?, search_text = ?, updated_at = ?
		 WHERE id = ?`,
		nullIfEmpty(d.Slug), d.Title, d.Abstract, d.GuidingPrinciple,
		d.Fulltext, d.Outcome, d.Reference, nullIfEmpty(d.ECLI), string(d.DecisionType), formatDate(d.Date),
		d.CourtID, d.CourtName, d.LawName, d.SourceURL, sourceJSON,
		d.DocumentID, d.SearchText, now, d.ID,
	)
	if err != nil {
		if uv := sqliteUniqueViolation(err); uv != nil {
			return uv
		}
		return eris.Wrapf(err, "sqlite: update decision %d", d.ID)
	}
	d.UpdatedAt = now
	return checkRowsAffected(res, "decision", d.ID)
}

func (s *SQLiteStore) FindExisting(ctx context.Context, key MatchKey) (*model.Decision, error) {
	if key.ECLI != "" {
		if d, err := s.findDecision(ctx, `ecli = ?`, key.ECLI); d != nil || err != nil {
			return d, err
		}
	}
	if key.Slug != "" {
		if d, err := s.findDecision(ctx, `slug = ?`, key.Slug); d != nil || err != nil {
			return d, err
		}
	}
	if key.SourceURL != "" {
		if d, err := s.findDecision(ctx, `source_url = ?`, key.SourceURL); d != nil || err != nil {
			return d, err
		}
	}
	if key.Reference != "" {
		where := `reference = ?`
		args := []any{key.Reference}
		if key.Date != nil {
			where += ` AND date = ?`
			args = append(args, formatDate(key.Date))
		} else {
			where += ` AND date IS NULL`
		}
		if key.CourtID != nil {
			where += ` AND court_id = ?`
			args = append(args, *key.CourtID)
		} else {
			where += ` AND court_id IS NULL`
		}
		return s.findDecision(ctx, where, args...)
	}
	return nil, nil
}

func (s *SQLiteStore) GetDecisionBySlug(ctx context.Context, slug string) (*model.Decision, error) {
	return s.findDecision(ctx, `slug = ?`, slug)
}

func (s *SQLiteStore) findDecision(ctx context.Context, where string, args ...any) (*model.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find decision")
	}
	if err := s.loadRelations(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE 1=1`
	var args []any

	if filter.Query != "" {
		query += ` AND search_text LIKE '%' || ? || '%'`
		args = append(args, filter.Query)
	}
	if filter.CourtID != nil {
		query += ` AND court_id = ?`
		args = append(args, *filter.CourtID)
	}
	if filter.DecisionType != "" {
		query += ` AND decision_type = ?`
		args = append(args, string(filter.DecisionType))
	}
	if filter.TagSlug != "" {
		query += ` AND id IN (SELECT decision_id FROM decision_tags
			JOIN tags ON tags.id = decision_tags.tag_id WHERE tags.slug = ?)`
		args = append(args, filter.TagSlug)
	}
	if filter.Incomplete {
		query += ` AND ` + incompleteCondition
	}
	query += ` ORDER BY date DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decisions")
	}
	defer rows.Close()

	var decisions []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		decisions = append(decisions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list decisions iterate")
	}

	for i := range decisions {
		if err := s.loadRelations(ctx, &decisions[i]); err != nil {
			return nil, err
		}
	}
	return decisions, nil
}

// incompleteCondition mirrors model.Decision.IncompleteFields in SQL.
const incompleteCondition = `(
	reference = ''
	OR date IS NULL
	OR decision_type IN ('', 'unknown')
	OR abstract = ''
	OR (court_id IS NULL AND court_name = '')
	OR (law_name = '' AND NOT EXISTS (
		SELECT 1 FROM decision_laws WHERE decision_laws.decision_id = decisions.id))
)`

func (s *SQLiteStore) CountDecisions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count decisions")
}

func (s *SQLiteStore) CountIncomplete(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM decisions WHERE `+incompleteCondition).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count incomplete")
}

func (s *SQLiteStore) CountByLoader(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(json_extract(source_data, '$.loader'), ''), COUNT(*)
		 FROM decisions GROUP BY 1`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by loader")
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan loader count")
		}
		counts[name] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by loader iterate")
}

func (s *SQLiteStore) UpdateSearchText(ctx context.Context, decisionID int64, text string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET search_text = ?, updated_at = ? WHERE id = ?`,
		text, time.Now().UTC(), decisionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update search text %d", decisionID)
	}
	return checkRowsAffected(res, "decision", decisionID)
}

// Courts

func (s *SQLiteStore) CreateCourt(ctx context.Context, c *model.Court) error {
	aliasesJSON, err := json.Marshal(c.Aliases)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal aliases")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO courts (name, aliases, jurisdiction_slug, ecli_court_code) VALUES (?, ?, ?, ?)`,
		c.Name, string(aliasesJSON), c.JurisdictionSlug, c.ECLICourtCode,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert court")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	c.ID = id
	return nil
}

func (s *SQLiteStore) FindCourtByName(ctx context.Context, name, jurisdiction string) (*model.Court, error) {
	court, err := s.findCourtWhere(ctx, `LOWER(name) LIKE LOWER(?) || '%'`, []any{name}, jurisdiction)
	if court != nil || err != nil {
		return court, err
	}
	// Substring fallback over name and aliases.
	return s.findCourtWhere(ctx,
		`(LOWER(name) LIKE '%' || LOWER(?) || '%' OR LOWER(aliases) LIKE '%' || LOWER(?) || '%')`,
		[]any{name, name}, jurisdiction)
}

// findCourtWhere returns a court only when the predicate matches exactly one
// row; zero or several matches return (nil, nil).
func (s *SQLiteStore) findCourtWhere(ctx context.Context, where string, args []any, jurisdiction string) (*model.Court, error) {
	query := `SELECT id, name, aliases, jurisdiction_slug, ecli_court_code FROM courts WHERE ` + where
	if jurisdiction != "" {
		query += ` AND jurisdiction_slug = ?`
		args = append(args, jurisdiction)
	}
	query += ` LIMIT 2`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find court")
	}
	defer rows.Close()

	var courts []model.Court
	for rows.Next() {
		var c model.Court
		var aliasesJSON string
		if err := rows.Scan(&c.ID, &c.Name, &aliasesJSON, &c.JurisdictionSlug, &c.ECLICourtCode); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan court")
		}
		if err := json.Unmarshal([]byte(aliasesJSON), &c.Aliases); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal aliases")
		}
		courts = append(courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: find court iterate")
	}
	if len(courts) != 1 {
		return nil, nil
	}
	return &courts[0], nil
}

// Laws

func (s *SQLiteStore) CreateLaw(ctx context.Context, l *model.Law) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO laws (name, slug) VALUES (?, ?)`, l.Name, l.Slug)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert law")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	l.ID = id
	return nil
}

func (s *SQLiteStore) FindLawByName(ctx context.Context, name string) (*model.Law, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM laws WHERE LOWER(name) = LOWER(?) LIMIT 1`, name)
	var l model.Law
	err := row.Scan(&l.ID, &l.Name, &l.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find law")
	}
	return &l, nil
}

func (s *SQLiteStore) AddDecisionLaw(ctx context.Context, decisionID, lawID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO decision_laws (decision_id, law_id) VALUES (?, ?)`,
		decisionID, lawID)
	return eris.Wrap(err, "sqlite: add decision law")
}

// Tags

func (s *SQLiteStore) FindOrCreateTag(ctx context.Context, name, slug string) (*model.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM tags WHERE name = ? LIMIT 1`, name)
	var t model.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Slug)
	if err == nil {
		return &t, nil
	}
	if err != sql.ErrNoRows {
		return nil, eris.Wrap(err, "sqlite: find tag")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tags (name, slug) VALUES (?, ?)`, name, slug)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert tag")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	return &model.Tag{ID: id, Name: name, Slug: slug}, nil
}

func (s *SQLiteStore) AddDecisionTag(ctx context.Context, decisionID, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO decision_tags (decision_id, tag_id) VALUES (?, ?)`,
		decisionID, tagID)
	return eris.Wrap(err, "sqlite: add decision tag")
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug FROM tags ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tags")
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tag")
		}
		tags = append(tags, t)
	}
	return tags, eris.Wrap(rows.Err(), "sqlite: list tags iterate")
}

// Documents

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (title, path, sha256, size, published_at) VALUES (?, ?, ?, ?, ?)`,
		doc.Title, doc.Path, doc.SHA256, doc.Size, formatDate(doc.PublishedAt))
	if err != nil {
		return eris.Wrap(err, "sqlite: insert document")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	doc.ID = id
	return nil
}

func (s *SQLiteStore) SetDecisionDocument(ctx context.Context, decisionID, documentID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET document_id = ?, updated_at = ? WHERE id = ?`,
		documentID, time.Now().UTC(), decisionID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set document for decision %d", decisionID)
	}
	return checkRowsAffected(res, "decision", decisionID)
}

// helpers

func (s *SQLiteStore) loadRelations(ctx context.Context, d *model.Decision) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug FROM tags t
		 JOIN decision_tags dt ON dt.tag_id = t.id WHERE dt.decision_id = ? ORDER BY t.name`,
		d.ID)
	if err != nil {
		return eris.Wrap(err, "sqlite: load tags")
	}
	defer rows.Close()
	d.Tags = nil
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return eris.Wrap(err, "sqlite: scan tag")
		}
		d.Tags = append(d.Tags, t)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "sqlite: load tags iterate")
	}

	lawRows, err := s.db.QueryContext(ctx,
		`SELECT l.id, l.name, l.slug FROM laws l
		 JOIN decision_laws dl ON dl.law_id = l.id WHERE dl.decision_id = ? ORDER BY l.name`,
		d.ID)
	if err != nil {
		return eris.Wrap(err, "sqlite: load laws")
	}
	defer lawRows.Close()
	d.Laws = nil
	for lawRows.Next() {
		var l model.Law
		if err := lawRows.Scan(&l.ID, &l.Name, &l.Slug); err != nil {
			return eris.Wrap(err, "sqlite: scan law")
		}
		d.Laws = append(d.Laws, l)
	}
	return eris.Wrap(lawRows.Err(), "sqlite: load laws iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDecision(row scannable) (*model.Decision, error) {
	var d model.Decision
	var slug, ecli, dateStr, sourceJSON sql.NullString
	var courtID, documentID sql.NullInt64

	err := row.Scan(&d.ID, &slug, &d.Title, &d.Abstract, &d.GuidingPrinciple, &d.Fulltext,
		&d.Outcome, &d.Reference, &ecli, &d.DecisionType, &dateStr, &courtID, &d.CourtName,
		&d.LawName, &d.SourceURL, &sourceJSON, &documentID, &d.SearchText,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.Slug = slug.String
	d.ECLI = ecli.String
	if dateStr.Valid && dateStr.String != "" {
		t, err := time.Parse("2006-01-02", dateStr.String)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse date %q", dateStr.String)
		}
		d.Date = &t
	}
	if courtID.Valid {
		d.CourtID = &courtID.Int64
	}
	if documentID.Valid {
		d.DocumentID = &documentID.Int64
	}
	if sourceJSON.Valid && sourceJSON.String != "" {
		if err := json.Unmarshal([]byte(sourceJSON.String), &d.SourceData); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal source data")
		}
	}
	return &d, nil
}

func marshalSourceData(data map[string]any) (any, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

// sqliteUniqueViolation maps a modernc.org/sqlite unique constraint error on
// the decisions table to a *UniqueViolationError.
func sqliteUniqueViolation(err error) *UniqueViolationError {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "decisions.ecli"):
		return &UniqueViolationError{Field: "ecli"}
	case strings.Contains(msg, "decisions.slug"):
		return &UniqueViolationError{Field: "slug"}
	default:
		return &UniqueViolationError{Field: "unknown"}
	}
}

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}
