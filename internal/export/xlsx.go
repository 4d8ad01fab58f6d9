// Package export writes decision listings for the editorial review workflow.
package export

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/okfde/froide-legalaction/internal/model"
	"github.com/okfde/froide-legalaction/internal/store"
)

var columns = []string{
	"Slug",
	"Reference",
	"ECLI",
	"Date",
	"Decision type",
	"Court",
	"Law",
	"Title",
	"Source URL",
	"Missing fields",
}

// WriteXLSX exports decisions matching the filter to an XLSX workbook at
// path. Returns the number of exported rows.
func WriteXLSX(ctx context.Context, s store.Store, filter store.DecisionFilter, path string) (int, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Decisions")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().Value = col
	}

	if filter.Limit <= 0 {
		filter.Limit = 200
	}

	total := 0
	for {
		decisions, err := s.ListDecisions(ctx, filter)
		if err != nil {
			return total, eris.Wrap(err, "export: list decisions")
		}
		if len(decisions) == 0 {
			break
		}

		for i := range decisions {
			addDecisionRow(sheet, &decisions[i])
		}
		total += len(decisions)

		if len(decisions) < filter.Limit {
			break
		}
		filter.Offset += filter.Limit
	}

	if err := f.Save(path); err != nil {
		return total, eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("decisions exported",
		zap.String("path", path),
		zap.Int("rows", total),
	)
	return total, nil
}

func addDecisionRow(sheet *xlsx.Sheet, d *model.Decision) {
	row := sheet.AddRow()
	row.AddCell().Value = d.Slug
	row.AddCell().Value = d.Reference
	row.AddCell().Value = d.ECLI

	date := ""
	if d.Date != nil {
		date = d.Date.Format("2006-01-02")
	}
	row.AddCell().Value = date

	row.AddCell().Value = string(d.DecisionType)
	row.AddCell().Value = d.CourtName
	row.AddCell().Value = d.LawName
	row.AddCell().Value = d.GeneratedTitle()
	row.AddCell().Value = d.SourceURL
	row.AddCell().Value = strings.Join(d.IncompleteFields(), ", ")
}
