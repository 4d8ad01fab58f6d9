package model

import (
	"strings"
	"time"
)

// DecisionType classifies a court decision.
type DecisionType string

const (
	DecisionRuling   DecisionType = "ruling"   // Urteil
	DecisionDecision DecisionType = "decision" // Beschluss
	DecisionNotice   DecisionType = "notice"   // Gerichtsbescheid
	DecisionOrder    DecisionType = "order"    // Verfügung
	DecisionUnknown  DecisionType = "unknown"
)

// decisionTypeLabels maps source display labels (German and English) to types.
var decisionTypeLabels = map[string]DecisionType{
	"urteil":           DecisionRuling,
	"beschluss":        DecisionDecision,
	"gerichtsbescheid": DecisionNotice,
	"verfügung":        DecisionOrder,
	"court ruling":     DecisionRuling,
	"court decision":   DecisionDecision,
	"court notice":     DecisionNotice,
	"court order":      DecisionOrder,
}

// ParseDecisionType maps a free-text type label to a DecisionType.
// Unrecognized labels map to DecisionUnknown.
func ParseDecisionType(label string) DecisionType {
	if t, ok := decisionTypeLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return t
	}
	return DecisionUnknown
}

// Label returns the German display label for the decision type.
func (t DecisionType) Label() string {
	switch t {
	case DecisionRuling:
		return "Urteil"
	case DecisionDecision:
		return "Beschluss"
	case DecisionNotice:
		return "Gerichtsbescheid"
	case DecisionOrder:
		return "Verfügung"
	default:
		return ""
	}
}

// Court is a judicial body from the court directory.
type Court struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Aliases          []string `json:"aliases,omitempty"`
	JurisdictionSlug string   `json:"jurisdiction_slug"` // "federal", "state", "eu"
	ECLICourtCode    string   `json:"ecli_court_code,omitempty"`
}

// Law is a statute from the law directory.
type Law struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Tag is a free-text label attached to decisions.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Document is a stored source document (usually the decision PDF).
type Document struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Path        string     `json:"path"`
	SHA256      string     `json:"sha256"`
	Size        int64      `json:"size"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Decision is the canonical record of a court decision.
type Decision struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug,omitempty"`

	Title            string `json:"title,omitempty"`
	Abstract         string `json:"abstract,omitempty"`
	GuidingPrinciple string `json:"guiding_principle,omitempty"`
	Fulltext         string `json:"fulltext,omitempty"`
	Outcome          string `json:"outcome,omitempty"`

	Reference    string       `json:"reference,omitempty"` // docket number, e.g. "10 C 5/21"
	ECLI         string       `json:"ecli,omitempty"`
	DecisionType DecisionType `json:"decision_type,omitempty"`
	Date         *time.Time   `json:"date,omitempty"`

	// CourtID links to the court directory once resolved; CourtName keeps
	// the free-text source name either way.
	CourtID   *int64 `json:"court_id,omitempty"`
	CourtName string `json:"court_name,omitempty"`

	// LawName is the free-text law reference; Laws holds resolved links.
	LawName string `json:"law_name,omitempty"`
	Laws    []Law  `json:"laws,omitempty"`

	Tags []Tag `json:"tags,omitempty"`

	SourceURL  string         `json:"source_url,omitempty"`
	SourceData map[string]any `json:"source_data,omitempty"`

	DocumentID *int64 `json:"document_id,omitempty"`

	SearchText string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete reports whether all fields needed for publication are set:
// reference, date, decision type, abstract, a court and at least one law.
func (d *Decision) Complete() bool {
	return len(d.IncompleteFields()) == 0
}

// IncompleteFields lists the publication-relevant fields that are still missing.
func (d *Decision) IncompleteFields() []string {
	var missing []string
	if d.Reference == "" {
		missing = append(missing, "reference")
	}
	if d.Date == nil {
		missing = append(missing, "date")
	}
	if d.DecisionType == "" || d.DecisionType == DecisionUnknown {
		missing = append(missing, "decision type")
	}
	if d.Abstract == "" {
		missing = append(missing, "abstract")
	}
	if d.CourtID == nil && d.CourtName == "" {
		missing = append(missing, "court")
	}
	if len(d.Laws) == 0 && d.LawName == "" {
		missing = append(missing, "law")
	}
	return missing
}

// GeneratedTitle derives a display title when none was curated.
func (d *Decision) GeneratedTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if label := d.DecisionType.Label(); label != "" && d.CourtName != "" {
		if d.Date != nil {
			return label + " des " + d.CourtName + " vom " + d.Date.Format("02.01.2006")
		}
		return label + " des " + d.CourtName
	}
	return d.Reference
}

// GenerateSearchText concatenates the searchable fields into the text corpus
// indexed by the store backend.
func (d *Decision) GenerateSearchText() string {
	parts := []string{d.Reference, d.LawName, d.Abstract, d.Fulltext}
	for _, tag := range d.Tags {
		parts = append(parts, tag.Name)
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
