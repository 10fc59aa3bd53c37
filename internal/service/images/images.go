package images

import (
	"context"
	"errors"
)

// Source identifies which waterfall stage produced a candidate.
type Source string

const (
	SourcePexels    Source = "pexels"
	SourceUnsplash  Source = "unsplash"
	SourceGenerated Source = "generated"
)

// Candidate is the single usable image a resolve call settles on. It is
// built from exactly one provider result and never merged across sources.
type Candidate struct {
	Source      Source `json:"source"`
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
	AltText     string `json:"alt_text"`
}

// Result is one raw hit from a provider search.
type Result struct {
	URL         string
	Description string
	Attribution string
}

// Provider is a single waterfall stage. Search returns the provider's own
// ranking; an empty slice means "no usable result, try the next stage".
type Provider interface {
	Name() string
	Source() Source
	Search(ctx context.Context, query string) ([]Result, error)
}

// FatalError marks a provider failure that signals client misconfiguration
// (bad credentials, rejected request) rather than a missing result. The
// waterfall aborts on it instead of falling through, so a broken setup is
// not masked by silent degradation.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
