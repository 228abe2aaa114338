package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type SourceKind string

const (
	KindFeed SourceKind = "feed"
	KindPage SourceKind = "page"
)

// ParseKind accepts "feed"/"rss"/"atom" and "page"/"html" in any case.
func ParseKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feed", "rss", "atom":
		return KindFeed, nil
	case "page", "html":
		return KindPage, nil
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// SourceDescriptor is one configured source. Country, when set, pins every
// alert from this source to a fixed location label.
type SourceDescriptor struct {
	Name    string     `json:"name" mapstructure:"name"`
	Kind    SourceKind `json:"kind" mapstructure:"kind"`
	URL     string     `json:"url" mapstructure:"url"`
	Country string     `json:"country,omitempty" mapstructure:"country"`
}

// RawCandidate is an item as pulled from a source. Body and PublishedRaw are
// nil when the source did not provide them.
type RawCandidate struct {
	Title        string
	Body         *string
	PublishedRaw *string
	Link         string
}

// Adapter turns one source into raw candidates.
type Adapter interface {
	Fetch(ctx context.Context, src SourceDescriptor) ([]RawCandidate, error)
}

type FailureKind string

const (
	FailureNetwork FailureKind = "network"
	FailureTimeout FailureKind = "timeout"
	FailureStatus  FailureKind = "status"
	FailureParse   FailureKind = "parse"
)

// FetchError reports why a source contributed nothing.
type FetchError struct {
	Source string
	Kind   FailureKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or "" when err is not a FetchError.
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func strPtr(s string) *string {
	return &s
}
