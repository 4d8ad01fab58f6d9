package loader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/okfde/froide-legalaction/internal/model"
)

// brandenburgEntry is one decision in the JSON export of the LDA Brandenburg
// decision database.
type brandenburgEntry struct {
	DetailURL      string `json:"detailUrl"`
	Gericht        string `json:"gericht"`
	Aktenzeichen   string `json:"aktenzeichen"`
	Datum          string `json:"datum"`
	Art            string `json:"art"`
	Rechtsgrund    string `json:"rechtsgrundlage"`
	Kurztext       string `json:"kurztext"`
	Schlagwort     string `json:"schlagwort"`
	DownloadURL    string `json:"downloadUrl"`
	Quelle         string `json:"quelle"`
	QuelleURL      string `json:"quelleUrl"`
	Verfahrensgang string `json:"verfahrensgang"`
	ECLI           string `json:"ecli"`
	PDFFile        string `json:"pdfFile"`
}

// Brandenburg loads decisions from a JSON export of the LDA Brandenburg
// decision database. Decision PDFs are expected next to the JSON file and
// fetched from downloadUrl when absent.
type Brandenburg struct{}

func (l *Brandenburg) Name() string { return "brandenburg" }

func (l *Brandenburg) Jurisdiction() string { return "" }

func (l *Brandenburg) Load(ctx context.Context, path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "brandenburg: read %s", path)
	}

	var entries []brandenburgEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "brandenburg: parse %s", path)
	}

	dir := filepath.Dir(path)
	var items []Item
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return items, eris.Wrap(err, "brandenburg: load")
		}
		zap.L().Info("loading decision entry",
			zap.String("path", path),
			zap.Int("index", i),
			zap.String("reference", entry.Aktenzeichen),
		)

		item, err := l.loadEntry(dir, entry)
		if err != nil {
			items = append(items, Item{Source: entry.DetailURL, Err: err})
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (l *Brandenburg) loadEntry(dir string, entry brandenburgEntry) (Item, error) {
	if entry.Aktenzeichen == "" {
		return Item{}, eris.New("brandenburg: entry without reference")
	}
	date, err := parseGermanDate(entry.Datum)
	if err != nil {
		return Item{}, eris.Wrapf(err, "brandenburg: entry %s", entry.Aktenzeichen)
	}

	sourceData := map[string]any{
		"loader":    "brandenburg",
		"detailUrl": entry.DetailURL,
		"quelle":    entry.Quelle,
	}
	if entry.QuelleURL != "" {
		sourceData["quelleUrl"] = entry.QuelleURL
	}
	if entry.Verfahrensgang != "" {
		sourceData["verfahrensgang"] = entry.Verfahrensgang
	}

	d := model.Decision{
		Abstract:     entry.Kurztext + "\n\n(Quelle: LDA Brandenburg)",
		CourtName:    entry.Gericht,
		LawName:      entry.Rechtsgrund,
		DecisionType: model.ParseDecisionType(entry.Art),
		Date:         &date,
		ECLI:         entry.ECLI,
		Reference:    entry.Aktenzeichen,
		SourceURL:    entry.DetailURL,
		SourceData:   sourceData,
	}

	item := Item{
		Decision:    d,
		CourtLookup: entry.Gericht,
		Tags:        entry.Schlagwort,
		PDFURL:      entry.DownloadURL,
		Source:      entry.DetailURL,
	}

	// Prefer the local PDF shipped with the export.
	if entry.PDFFile != "" {
		local := filepath.Join(dir, entry.PDFFile)
		if _, err := os.Stat(local); err == nil {
			item.PDFPath = local
			item.PDFURL = ""
		}
	}

	return item, nil
}
