package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okfde/froide-legalaction/internal/model"
)

const brandenburgExport = `[
  {
    "detailUrl": "https://www.lda.brandenburg.de/lda/de/detail/~10-c-5-21",
    "gericht": "Bundesverwaltungsgericht",
    "aktenzeichen": "10 C 5.21",
    "datum": "01.09.2022",
    "art": "Urteil",
    "rechtsgrundlage": "Umweltinformationsgesetz (Bund)",
    "kurztext": "Das Bundesverwaltungsgericht hebt die Entscheidung der Vorinstanz auf.",
    "schlagwort": "Interessenabwägung, Personenbezogene Daten",
    "downloadUrl": "https://www.lda.brandenburg.de/media/BVerwG_10_C_5_21.pdf",
    "quelle": "Bundesverwaltungsgericht",
    "quelleUrl": "https://www.bverwg.de/de/010922U10C5.21.0",
    "ecli": null,
    "pdfFile": "Bundesverwaltungsgericht 10 C 5.21.pdf"
  },
  {
    "detailUrl": "https://www.lda.brandenburg.de/lda/de/detail/~2-k-384-16",
    "gericht": "Verwaltungsgericht Berlin",
    "aktenzeichen": "2 K 384.16",
    "datum": "22.11.2018",
    "art": "Urteil",
    "rechtsgrundlage": "",
    "kurztext": "Erstinstanzliche Entscheidung.",
    "schlagwort": "",
    "downloadUrl": "https://www.lda.brandenburg.de/media/VG_2_K_384_16.pdf",
    "ecli": "",
    "pdfFile": "missing.pdf"
  },
  {
    "detailUrl": "https://www.lda.brandenburg.de/lda/de/detail/~broken",
    "gericht": "Verwaltungsgericht Potsdam",
    "aktenzeichen": "VG 9 K 1/19",
    "datum": "kein Datum",
    "art": "Beschluss",
    "kurztext": "",
    "schlagwort": ""
  }
]`

func writeBrandenburgFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "entscheidungen.json")
	require.NoError(t, os.WriteFile(path, []byte(brandenburgExport), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "Bundesverwaltungsgericht 10 C 5.21.pdf"),
		[]byte("%PDF-1.4"), 0o644))
	return path
}

func TestBrandenburg_Load(t *testing.T) {
	path := writeBrandenburgFixture(t)

	l := &Brandenburg{}
	items, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 3)

	first := items[0]
	require.NoError(t, first.Err)
	d := first.Decision
	assert.Equal(t, "Bundesverwaltungsgericht", d.CourtName)
	assert.Equal(t, "Bundesverwaltungsgericht", first.CourtLookup)
	assert.Equal(t, "10 C 5.21", d.Reference)
	assert.Equal(t, model.DecisionRuling, d.DecisionType)
	assert.Equal(t, "Umweltinformationsgesetz (Bund)", d.LawName)
	assert.Equal(t,
		"Das Bundesverwaltungsgericht hebt die Entscheidung der Vorinstanz auf.\n\n(Quelle: LDA Brandenburg)",
		d.Abstract)
	require.NotNil(t, d.Date)
	assert.Equal(t, time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC), *d.Date)
	assert.Equal(t, "https://www.lda.brandenburg.de/lda/de/detail/~10-c-5-21", d.SourceURL)
	assert.Equal(t, "Interessenabwägung, Personenbezogene Daten", first.Tags)
	assert.Equal(t, "brandenburg", d.SourceData["loader"])

	// Local PDF exists, so no download needed.
	assert.NotEmpty(t, first.PDFPath)
	assert.Empty(t, first.PDFURL)

	// Second entry references a PDF that is not on disk.
	second := items[1]
	require.NoError(t, second.Err)
	assert.Empty(t, second.PDFPath)
	assert.Equal(t, "https://www.lda.brandenburg.de/media/VG_2_K_384_16.pdf", second.PDFURL)

	// Third entry has an unparseable date and is carried as a failed item.
	third := items[2]
	require.Error(t, third.Err)
	assert.Equal(t, "https://www.lda.brandenburg.de/lda/de/detail/~broken", third.Source)
}

func TestBrandenburg_LoadBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := &Brandenburg{}
	_, err := l.Load(context.Background(), path)
	require.Error(t, err)
}
