package store

import (
	"context"
	"fmt"
	"time"

	"github.com/okfde/froide-legalaction/internal/model"
)

// MatchKey carries the fields used to find an already-imported decision.
type MatchKey struct {
	ECLI      string
	Slug      string
	SourceURL string
	Reference string
	Date      *time.Time
	CourtID   *int64
}

// DecisionFilter specifies criteria for listing decisions.
type DecisionFilter struct {
	Query        string             // full-text query, backend-specific execution
	CourtID      *int64             `json:"court_id,omitempty"`
	DecisionType model.DecisionType `json:"decision_type,omitempty"`
	TagSlug      string             `json:"tag_slug,omitempty"`
	Incomplete   bool               `json:"incomplete,omitempty"`
	Limit        int                `json:"limit,omitempty"`
	Offset       int                `json:"offset,omitempty"`
}

// UniqueViolationError reports an insert that hit the unique index on
// "ecli" or "slug". The import pipeline uses it to re-match by that key.
type UniqueViolationError struct {
	Field string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("store: unique violation on %s", e.Field)
}

// Store defines the persistence interface for the decision database.
type Store interface {
	// Decisions
	CreateDecision(ctx context.Context, d *model.Decision) error
	UpdateDecision(ctx context.Context, d *model.Decision) error
	// FindExisting looks a decision up by, in order of precedence: ECLI,
	// slug, source URL, then the (reference, date, court) triple. The first
	// key that is set on the MatchKey and matches a row wins. A nil date or
	// court in the triple matches rows where that column is NULL. Returns
	// (nil, nil) when nothing matches.
	FindExisting(ctx context.Context, key MatchKey) (*model.Decision, error)
	GetDecisionBySlug(ctx context.Context, slug string) (*model.Decision, error)
	ListDecisions(ctx context.Context, filter DecisionFilter) ([]model.Decision, error)
	CountDecisions(ctx context.Context) (int64, error)
	CountIncomplete(ctx context.Context) (int64, error)
	// CountByLoader groups decisions by the loader recorded in their source
	// data. Decisions without one are counted under the empty key.
	CountByLoader(ctx context.Context) (map[string]int64, error)
	UpdateSearchText(ctx context.Context, decisionID int64, text string) error

	// Court directory. FindCourtByName tries a case-insensitive prefix
	// match first and falls back to a substring match over name and
	// aliases; zero or ambiguous results return (nil, nil).
	CreateCourt(ctx context.Context, c *model.Court) error
	FindCourtByName(ctx context.Context, name, jurisdiction string) (*model.Court, error)

	// Law directory
	CreateLaw(ctx context.Context, l *model.Law) error
	FindLawByName(ctx context.Context, name string) (*model.Law, error)
	AddDecisionLaw(ctx context.Context, decisionID, lawID int64) error

	// Tags
	FindOrCreateTag(ctx context.Context, name, slug string) (*model.Tag, error)
	AddDecisionTag(ctx context.Context, decisionID, tagID int64) error
	ListTags(ctx context.Context) ([]model.Tag, error)

	// Documents
	CreateDocument(ctx context.Context, doc *model.Document) error
	SetDecisionDocument(ctx context.Context, decisionID, documentID int64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
