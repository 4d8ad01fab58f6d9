// Package ecli generates German ECLI identifiers for court decisions and
// normalizes free-text docket references.
//
// https://e-justice.europa.eu/175/DE/european_case_law_identifier_ecli?GERMANY
package ecli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/okfde/froide-legalaction/internal/model"
)

// referenceRe matches a German docket number: an optional roman or arabic
// chamber number, a register sign, and two digit groups joined by a
// separator, optionally followed by a ".X" court suffix.
var referenceRe = regexp.MustCompile(`(?:\d+|[IVX]+) *[A-Za-z]+ *\d+ *[/. _] *\d+(?:\.[A-Z])?`)

// ParseReference extracts the docket number from free text that may contain
// surrounding prose ("Beschluss vom 1.9.2022, Az. 10 C 5/21"). A "." used as
// the group separator is normalized to "/"; a trailing ".X" suffix is kept.
// Returns a *ReferenceParseError when no docket number pattern is found.
func ParseReference(raw string) (string, error) {
	match := referenceRe.FindString(raw)
	if match == "" {
		return "", &ReferenceParseError{Raw: raw}
	}

	suffix := ""
	if n := len(match); n >= 2 && match[n-2] == '.' && match[n-1] >= 'A' && match[n-1] <= 'Z' {
		suffix = match[n-2:]
		match = match[:n-2]
	}
	return strings.ReplaceAll(match, ".", "/") + suffix, nil
}

// supportedFederalCourts lists the federal courts whose ECLI reference format
// is known. Bundessozialgericht uses a different scheme and is not supported.
var supportedFederalCourts = map[string]bool{
	"Bundesgerichtshof":        true,
	"Bundesverwaltungsgericht": true,
	"Bundesfinanzhof":          true,
	"Bundesarbeitsgericht":     true,
}

// MakeECLI formats a German ECLI from a decision date, a parsed reference and
// the issuing court, e.g. ECLI:DE:BVerwG:2002:170402.U.9CN1.01.0.
//
// EU-level decisions have no German ECLI and fail with
// *UnsupportedJurisdictionError. Federal decisions outside the supported
// court list fail with *UnsupportedCourtError. An empty ECLI court code on
// the court yields a syntactically valid but court-code-less identifier.
func MakeECLI(date time.Time, ref string, court model.Court, decisionType model.DecisionType) (string, error) {
	if court.JurisdictionSlug == "eu" {
		return "", &UnsupportedJurisdictionError{Jurisdiction: court.JurisdictionSlug}
	}

	var body string
	if court.JurisdictionSlug == "federal" {
		if !supportedFederalCourts[court.Name] {
			return "", &UnsupportedCourtError{Court: court.Name}
		}
		// The collision counter is not persisted anywhere, so it stays "0".
		// Two decisions with identical date, reference and court collide.
		body = fmt.Sprintf("%s.%s.%s.0",
			date.Format("020106"), typeCode(decisionType), formatReference(ref))
	} else {
		body = fmt.Sprintf("%s.%s.00", date.Format("0102"), formatReference(ref))
	}

	return fmt.Sprintf("ECLI:DE:%s:%s:%s", court.ECLICourtCode, date.Format("2006"), body), nil
}

// typeCode maps the decision type to its ECLI abbreviation: "U" Urteil,
// "B" Beschluss, "G" Gerichtsbescheid, "V" Verfügung, "S" Sonstige.
func typeCode(t model.DecisionType) string {
	switch t {
	case model.DecisionRuling:
		return "U"
	case model.DecisionDecision:
		return "B"
	case model.DecisionNotice:
		return "G"
	case model.DecisionOrder:
		return "V"
	default:
		return "S"
	}
}

// formatReference normalizes a docket number for use inside an ECLI body:
// "/" becomes ".", spaces are stripped, letters are uppercased.
func formatReference(ref string) string {
	ref = strings.ReplaceAll(ref, "/", ".")
	ref = strings.ReplaceAll(ref, " ", "")
	return strings.ToUpper(ref)
}

// MakeSlug derives a URL-safe unique identifier for a decision. Priority:
// an existing slug is returned verbatim; otherwise the ECLI minus its
// "ECLI:DE:" prefix is slugified; otherwise an ECLI is guessed from the
// reference, date and court and slugified. The court may be nil when
// unresolved, in which case the reference path is unavailable.
//
// MakeSlug has no side effects; callers persist the result.
func MakeSlug(d *model.Decision, court *model.Court) (string, error) {
	if d.Slug != "" {
		return d.Slug, nil
	}
	if d.ECLI != "" {
		return Slugify(strings.TrimPrefix(d.ECLI, "ECLI:DE:")), nil
	}
	if d.Reference != "" && d.Date != nil && court != nil {
		ref, err := ParseReference(d.Reference)
		if err != nil {
			return "", &SlugGenerationError{Cause: err}
		}
		guessed, err := MakeECLI(*d.Date, ref, *court, d.DecisionType)
		if err != nil {
			return "", &SlugGenerationError{Cause: err}
		}
		return Slugify(strings.TrimPrefix(guessed, "ECLI:DE:")), nil
	}
	return "", &SlugGenerationError{}
}
