package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okfde/froide-legalaction/internal/document"
	"github.com/okfde/froide-legalaction/internal/importer/loader"
	"github.com/okfde/froide-legalaction/internal/model"
	"github.com/okfde/froide-legalaction/internal/store"
)

// stubLoader returns canned items, so pipeline behavior can be tested without
// source fixtures.
type stubLoader struct {
	name         string
	jurisdiction string
	items        []loader.Item
	err          error
}

func (l *stubLoader) Name() string         { return l.name }
func (l *stubLoader) Jurisdiction() string { return l.jurisdiction }

func (l *stubLoader) Load(ctx context.Context, path string) ([]loader.Item, error) {
	return l.items, l.err
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestDocs(t *testing.T) *document.Store {
	t.Helper()
	docs, err := document.NewStore(t.TempDir())
	require.NoError(t, err)
	return docs
}

func seedCourt(t *testing.T, s store.Store) {
	t.Helper()
	require.NoError(t, s.CreateCourt(context.Background(), &model.Court{
		Name:             "Bundesverwaltungsgericht",
		JurisdictionSlug: "federal",
		ECLICourtCode:    "BVerwG",
	}))
}

func testItem() loader.Item {
	date := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)
	return loader.Item{
		Decision: model.Decision{
			Abstract:     "Das Gericht hebt die Entscheidung auf.",
			CourtName:    "Bundesverwaltungsgericht",
			LawName:      "Umweltinformationsgesetz (Bund)",
			DecisionType: model.DecisionRuling,
			Date:         &date,
			Reference:    "10 C 5.21",
			SourceURL:    "https://example.org/detail/10-c-5-21",
			SourceData:   map[string]any{"loader": "brandenburg"},
		},
		CourtLookup: "Bundesverwaltungsgericht",
		Tags:        "Interessenabwägung, Personenbezogene Daten, Interessenabwägung",
		Source:      "https://example.org/detail/10-c-5-21",
	}
}

func TestPipeline_CreatesDecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourt(t, s)

	p := New(s, nil, nil)
	report, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{testItem()}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Merged)
	assert.Equal(t, 0, report.Rejected)

	// Slug derives from the generated ECLI since the source carries none.
	res := report.Results[0]
	assert.Equal(t, "bverwg-2022-010922-u-10c5-21-0", res.Slug)

	d, err := s.GetDecisionBySlug(ctx, res.Slug)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NotNil(t, d.CourtID)
	assert.Len(t, d.Tags, 2)
	require.Len(t, d.Laws, 1)
	assert.Equal(t, "Umweltinformationsgesetz (Bund)", d.Laws[0].Name)
	assert.NotEmpty(t, d.SearchText)
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	l := &stubLoader{name: "test", items: []loader.Item{testItem()}}

	p := New(s, nil, nil)
	first, err := p.Run(ctx, l, "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := p.Run(ctx, l, "")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Merged)

	n, err := s.CountDecisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPipeline_MergeKeepsCuratedFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourt(t, s)

	item := testItem()
	p := New(s, nil, nil)
	report, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	slug := report.Results[0].Slug
	require.NotEmpty(t, slug)

	// Curate the abstract, then re-import with changed source fields.
	d, err := s.GetDecisionBySlug(ctx, slug)
	require.NoError(t, err)
	d.Abstract = "Redaktionell überarbeitete Zusammenfassung."
	require.NoError(t, s.UpdateDecision(ctx, d))

	item.Decision.Title = "Revisionsurteil zum Umweltinformationsgesetz"
	item.Decision.Abstract = "Neuer Quelltext, der nicht übernommen werden darf."
	_, err = p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)

	d, err = s.GetDecisionBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, "Redaktionell überarbeitete Zusammenfassung.", d.Abstract)
	assert.Equal(t, "Revisionsurteil zum Umweltinformationsgesetz", d.Title)
}

func TestPipeline_RejectedItemDoesNotAbortBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bad := loader.Item{Source: "broken.html", Err: assert.AnError}
	good := testItem()

	p := New(s, nil, nil)
	report, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{bad, good}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.Total())
	assert.Equal(t, StatusRejected, report.Results[0].Status)
	require.Error(t, report.Results[0].Err)
}

func TestPipeline_UnresolvedCourtIsNonFatal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// No courts in the directory, lookup finds nothing.
	item := testItem()
	p := New(s, nil, nil)
	report, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)

	d, err := s.FindExisting(ctx, store.MatchKey{SourceURL: item.Decision.SourceURL})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Nil(t, d.CourtID)
	assert.Equal(t, "Bundesverwaltungsgericht", d.CourtName)
}

func TestPipeline_MatchesBySourceURLWithoutSlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Without court, date or usable reference no slug can be generated, so
	// the re-import must match on the source URL.
	item := loader.Item{
		Decision: model.Decision{
			Title:     "Entscheidung ohne Metadaten",
			SourceURL: "https://example.org/detail/opaque",
		},
		Source: "https://example.org/detail/opaque",
	}

	p := New(s, nil, nil)
	first, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Empty(t, first.Results[0].Slug)

	second, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Merged)
}

func TestPipeline_AttachesLocalDocument(t *testing.T) {
	s := newTestStore(t)
	docs := newTestDocs(t)
	ctx := context.Background()
	seedCourt(t, s)

	pdf := filepath.Join(t.TempDir(), "decision.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 content"), 0o644))

	item := testItem()
	item.PDFPath = pdf

	p := New(s, docs, nil)
	report, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)

	d, err := s.GetDecisionBySlug(ctx, report.Results[0].Slug)
	require.NoError(t, err)
	require.NotNil(t, d.DocumentID)

	// The stored file is retrievable through the content store.
	sum := sha256.Sum256([]byte("%PDF-1.4 content"))
	digest := hex.EncodeToString(sum[:])
	r, err := docs.Open(filepath.Join(digest[0:2], digest[2:4], digest+".pdf"))
	require.NoError(t, err)
	_ = r.Close()
}

func TestPipeline_MissingDocumentIsNonFatal(t *testing.T) {
	s := newTestStore(t)
	docs := newTestDocs(t)
	ctx := context.Background()
	seedCourt(t, s)

	item := testItem()
	item.PDFPath = filepath.Join(t.TempDir(), "does-not-exist.pdf")

	p := New(s, docs, nil)
	report, err := p.Run(ctx, &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	d, err := s.GetDecisionBySlug(ctx, report.Results[0].Slug)
	require.NoError(t, err)
	assert.Nil(t, d.DocumentID)
}

func TestPipeline_LoaderErrorAbortsRun(t *testing.T) {
	s := newTestStore(t)
	p := New(s, nil, nil)

	_, err := p.Run(context.Background(), &stubLoader{name: "test", err: assert.AnError}, "bad-path")
	require.Error(t, err)
}

func TestDocumentTitle(t *testing.T) {
	date := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)
	d := &model.Decision{
		Reference: "10 C 5.21",
		CourtName: "Bundesverwaltungsgericht",
		Date:      &date,
	}
	assert.Equal(t, "10 C 5.21, Bundesverwaltungsgericht (1.9.2022)", documentTitle(d))

	d.Date = nil
	assert.Equal(t, "10 C 5.21, Bundesverwaltungsgericht", documentTitle(d))
}

// conflictStore simulates a concurrent import: the pre-create match sees
// nothing, the insert collides on a unique index, the re-match finds the row.
type conflictStore struct {
	store.Store
	existing   *model.Decision
	finds      int
	rematchKey store.MatchKey
	updated    *model.Decision
}

func (s *conflictStore) FindCourtByName(ctx context.Context, name, jurisdiction string) (*model.Court, error) {
	return nil, nil
}

func (s *conflictStore) FindExisting(ctx context.Context, key store.MatchKey) (*model.Decision, error) {
	s.finds++
	if s.finds == 1 {
		return nil, nil
	}
	s.rematchKey = key
	return s.existing, nil
}

func (s *conflictStore) CreateDecision(ctx context.Context, d *model.Decision) error {
	return &store.UniqueViolationError{Field: "slug"}
}

func (s *conflictStore) UpdateDecision(ctx context.Context, d *model.Decision) error {
	s.updated = d
	return nil
}

func (s *conflictStore) UpdateSearchText(ctx context.Context, decisionID int64, text string) error {
	return nil
}

func TestPipeline_UniqueViolationRematchesAndMerges(t *testing.T) {
	existing := &model.Decision{
		ID:       7,
		Slug:     "bverwg-2022-010922-u-10c5-21-0",
		Abstract: "Redaktionell überarbeitete Zusammenfassung.",
	}
	st := &conflictStore{existing: existing}

	item := testItem()
	item.Decision.Slug = existing.Slug
	item.Decision.Title = "Revisionsurteil zum Umweltinformationsgesetz"
	item.Tags = ""

	p := New(st, nil, nil)
	report, err := p.Run(context.Background(), &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, 0, report.Rejected)
	assert.Equal(t, existing.Slug, report.Results[0].Slug)

	// Re-matched by the violated key only, then merged into the stored row.
	assert.Equal(t, store.MatchKey{Slug: existing.Slug}, st.rematchKey)
	require.NotNil(t, st.updated)
	assert.Equal(t, int64(7), st.updated.ID)
	assert.Equal(t, "Revisionsurteil zum Umweltinformationsgesetz", st.updated.Title)
	assert.Equal(t, "Redaktionell überarbeitete Zusammenfassung.", st.updated.Abstract)
}

func TestPipeline_UniqueViolationRematchMissIsRejected(t *testing.T) {
	st := &conflictStore{existing: nil}

	item := testItem()
	item.Decision.Slug = "bverwg-2022-010922-u-10c5-21-0"
	item.Tags = ""

	p := New(st, nil, nil)
	report, err := p.Run(context.Background(), &stubLoader{name: "test", items: []loader.Item{item}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rejected)

	res := report.Results[0]
	assert.Equal(t, StatusRejected, res.Status)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "unique violation on slug")
	assert.Nil(t, st.updated)
}
