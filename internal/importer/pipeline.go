// Package importer runs source loaders and reconciles their output with the
// decision database.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/okfde/froide-legalaction/internal/document"
	"github.com/okfde/froide-legalaction/internal/ecli"
	"github.com/okfde/froide-legalaction/internal/fetcher"
	"github.com/okfde/froide-legalaction/internal/importer/loader"
	"github.com/okfde/froide-legalaction/internal/model"
	"github.com/okfde/froide-legalaction/internal/store"
)

// DocumentStore is the slice of the document store the pipeline needs.
type DocumentStore interface {
	Put(r io.Reader, ext string) (*document.Stored, error)
}

// Pipeline imports extracted decisions into the store. Each item runs to a
// terminal status independently; one bad item never aborts the batch.
type Pipeline struct {
	store   store.Store
	docs    DocumentStore
	fetcher fetcher.Fetcher
}

// New creates a Pipeline. docs and fetch may be nil, in which case documents
// are not attached.
func New(s store.Store, docs DocumentStore, fetch fetcher.Fetcher) *Pipeline {
	return &Pipeline{store: s, docs: docs, fetcher: fetch}
}

// Run loads all items from the given source path and imports them.
func (p *Pipeline) Run(ctx context.Context, l loader.Loader, path string) (*Report, error) {
	items, err := l.Load(ctx, path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: load %s via %s", path, l.Name())
	}

	report := &Report{}
	for _, item := range items {
		res := p.processItem(ctx, l, item)
		report.add(res)

		fields := []zap.Field{
			zap.String("loader", l.Name()),
			zap.String("status", string(res.Status)),
			zap.String("source", res.Source),
			zap.String("reference", res.Reference),
		}
		if res.Slug != "" {
			fields = append(fields, zap.String("slug", res.Slug))
		}
		if res.Err != nil {
			fields = append(fields, zap.Error(res.Err))
			zap.L().Warn("decision rejected", fields...)
			continue
		}
		zap.L().Info("decision imported", fields...)
	}

	zap.L().Info("import finished",
		zap.String("loader", l.Name()),
		zap.Int("created", report.Created),
		zap.Int("merged", report.Merged),
		zap.Int("rejected", report.Rejected),
	)
	return report, nil
}

func (p *Pipeline) processItem(ctx context.Context, l loader.Loader, item loader.Item) Result {
	res := Result{Source: item.Source, Reference: item.Decision.Reference}
	if item.Err != nil {
		res.Status = StatusRejected
		res.Err = item.Err
		return res
	}

	d := item.Decision

	// Court resolution is best effort. The free-text court name stays on the
	// decision either way.
	var court *model.Court
	if item.CourtLookup != "" {
		var err error
		court, err = p.store.FindCourtByName(ctx, item.CourtLookup, l.Jurisdiction())
		if err != nil {
			res.Status = StatusRejected
			res.Err = eris.Wrapf(err, "resolve court %q", item.CourtLookup)
			return res
		}
		if court != nil {
			d.CourtID = &court.ID
		}
	}

	// A missing slug only means the decision cannot be identified that way.
	if slug, err := ecli.MakeSlug(&d, court); err == nil {
		d.Slug = slug
	}
	res.Slug = d.Slug

	existing, err := p.store.FindExisting(ctx, store.MatchKey{
		ECLI:      d.ECLI,
		Slug:      d.Slug,
		SourceURL: d.SourceURL,
		Reference: d.Reference,
		Date:      d.Date,
		CourtID:   d.CourtID,
	})
	if err != nil {
		res.Status = StatusRejected
		res.Err = eris.Wrap(err, "match existing")
		return res
	}

	if existing != nil {
		return p.merge(ctx, existing, &d, item, res)
	}

	if err := p.store.CreateDecision(ctx, &d); err != nil {
		var uv *store.UniqueViolationError
		if errors.As(err, &uv) {
			// Concurrent import or a key FindExisting could not see. Re-match
			// by the violated key and merge instead.
			key := store.MatchKey{}
			switch uv.Field {
			case "ecli":
				key.ECLI = d.ECLI
			case "slug":
				key.Slug = d.Slug
			}
			existing, ferr := p.store.FindExisting(ctx, key)
			if ferr == nil && existing != nil {
				return p.merge(ctx, existing, &d, item, res)
			}
			res.Status = StatusRejected
			res.Err = eris.Wrapf(err, "re-match after unique violation on %s", uv.Field)
			return res
		}
		res.Status = StatusRejected
		res.Err = eris.Wrap(err, "create decision")
		return res
	}

	p.attachDocument(ctx, &d, item)
	p.assignTags(ctx, &d, item.Tags)
	p.assignLaw(ctx, &d)

	if err := p.store.UpdateSearchText(ctx, d.ID, d.GenerateSearchText()); err != nil {
		zap.L().Warn("search text update failed",
			zap.Int64("decision_id", d.ID), zap.Error(err))
	}

	res.Status = StatusCreated
	res.Slug = d.Slug
	return res
}

// merge folds the source-provided fields of d into the already stored
// decision. Curated fields (abstract, tags, guiding principle) stay untouched.
func (p *Pipeline) merge(ctx context.Context, existing, d *model.Decision, item loader.Item, res Result) Result {
	if len(d.SourceData) > 0 {
		if existing.SourceData == nil {
			existing.SourceData = make(map[string]any, len(d.SourceData))
		}
		for k, v := range d.SourceData {
			existing.SourceData[k] = v
		}
	}
	if d.Title != "" {
		existing.Title = d.Title
	}
	if d.SourceURL != "" {
		existing.SourceURL = d.SourceURL
	}

	if err := p.store.UpdateDecision(ctx, existing); err != nil {
		res.Status = StatusRejected
		res.Err = eris.Wrap(err, "merge decision")
		return res
	}

	if existing.DocumentID == nil {
		p.attachDocument(ctx, existing, item)
	}

	if err := p.store.UpdateSearchText(ctx, existing.ID, existing.GenerateSearchText()); err != nil {
		zap.L().Warn("search text update failed",
			zap.Int64("decision_id", existing.ID), zap.Error(err))
	}

	res.Status = StatusMerged
	res.Slug = existing.Slug
	return res
}

// attachDocument stores the decision PDF and links it. Failure to fetch or
// store the file is logged, not fatal: the decision row already exists.
func (p *Pipeline) attachDocument(ctx context.Context, d *model.Decision, item loader.Item) {
	if p.docs == nil || (item.PDFPath == "" && item.PDFURL == "") {
		return
	}

	var r io.ReadCloser
	var err error
	switch {
	case item.PDFPath != "":
		r, err = os.Open(item.PDFPath)
	case p.fetcher != nil:
		r, err = p.fetcher.Download(ctx, item.PDFURL)
	default:
		return
	}
	if err != nil {
		zap.L().Warn("document fetch failed",
			zap.String("source", item.Source), zap.Error(err))
		return
	}
	defer r.Close() //nolint:errcheck

	stored, err := p.docs.Put(r, ".pdf")
	if err != nil {
		zap.L().Warn("document store failed",
			zap.String("source", item.Source), zap.Error(err))
		return
	}

	doc := model.Document{
		Title:       documentTitle(d),
		Path:        stored.Path,
		SHA256:      stored.SHA256,
		Size:        stored.Size,
		PublishedAt: d.Date,
	}
	if err := p.store.CreateDocument(ctx, &doc); err != nil {
		zap.L().Warn("document record failed",
			zap.String("source", item.Source), zap.Error(err))
		return
	}
	if err := p.store.SetDecisionDocument(ctx, d.ID, doc.ID); err != nil {
		zap.L().Warn("document link failed",
			zap.Int64("decision_id", d.ID), zap.Error(err))
		return
	}
	d.DocumentID = &doc.ID
}

// assignTags splits the comma-separated source tag string, deduplicates it
// and associates find-or-created tag entities.
func (p *Pipeline) assignTags(ctx context.Context, d *model.Decision, tags string) {
	seen := make(map[string]bool)
	for _, raw := range strings.Split(tags, ",") {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := p.store.FindOrCreateTag(ctx, name, ecli.Slugify(name))
		if err != nil {
			zap.L().Warn("tag lookup failed", zap.String("tag", name), zap.Error(err))
			continue
		}
		if err := p.store.AddDecisionTag(ctx, d.ID, tag.ID); err != nil {
			zap.L().Warn("tag link failed", zap.String("tag", name), zap.Error(err))
			continue
		}
		d.Tags = append(d.Tags, *tag)
	}
}

// assignLaw links the free-text law reference to a law entity, creating it
// on first sight.
func (p *Pipeline) assignLaw(ctx context.Context, d *model.Decision) {
	if d.LawName == "" {
		return
	}

	law, err := p.store.FindLawByName(ctx, d.LawName)
	if err != nil {
		zap.L().Warn("law lookup failed", zap.String("law", d.LawName), zap.Error(err))
		return
	}
	if law == nil {
		law = &model.Law{Name: d.LawName, Slug: ecli.Slugify(d.LawName)}
		if err := p.store.CreateLaw(ctx, law); err != nil {
			zap.L().Warn("law create failed", zap.String("law", d.LawName), zap.Error(err))
			return
		}
	}
	if err := p.store.AddDecisionLaw(ctx, d.ID, law.ID); err != nil {
		zap.L().Warn("law link failed", zap.String("law", d.LawName), zap.Error(err))
		return
	}
	d.Laws = append(d.Laws, *law)
}

func documentTitle(d *model.Decision) string {
	if d.Date == nil {
		return fmt.Sprintf("%s, %s", d.Reference, d.CourtName)
	}
	return fmt.Sprintf("%s, %s (%d.%d.%d)",
		d.Reference, d.CourtName, d.Date.Day(), int(d.Date.Month()), d.Date.Year())
}
