package ecli

import "fmt"

// ReferenceParseError indicates the raw reference text contains no
// recognizable docket number pattern.
type ReferenceParseError struct {
	Raw string
}

func (e *ReferenceParseError) Error() string {
	return fmt.Sprintf("ecli: could not parse reference %q", e.Raw)
}

// UnsupportedJurisdictionError indicates no ECLI formatting rule exists for
// the jurisdiction (currently EU-level decisions).
type UnsupportedJurisdictionError struct {
	Jurisdiction string
}

func (e *UnsupportedJurisdictionError) Error() string {
	return fmt.Sprintf("ecli: cannot generate ECLI for jurisdiction %q", e.Jurisdiction)
}

// UnsupportedCourtError indicates a federal court outside the supported
// allow-list.
type UnsupportedCourtError struct {
	Court string
}

func (e *UnsupportedCourtError) Error() string {
	return fmt.Sprintf("ecli: cannot generate ECLI for federal court %q", e.Court)
}

// SlugGenerationError indicates no usable source (slug, ECLI or reference)
// was available to derive a slug from.
type SlugGenerationError struct {
	Cause error
}

func (e *SlugGenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ecli: cannot make slug: %v", e.Cause)
	}
	return "ecli: cannot make slug: no slug, ECLI or reference available"
}

func (e *SlugGenerationError) Unwrap() error { return e.Cause }
