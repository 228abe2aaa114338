package geo

import (
	"context"
	"errors"
)

// Unknown is the label used whenever no location could be resolved.
const Unknown = "Unknown"

// ErrNoMatch is returned by a Geocoder that found nothing for the query.
var ErrNoMatch = errors.New("no geocoding match")

// LocationResolver maps free text to a coarse location label. It never
// fails; anything that goes wrong yields Unknown.
type LocationResolver interface {
	Resolve(ctx context.Context, text string) string
}

// Geocoder looks up a full address string for free text.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (string, error)
}

// ResolverFunc adapts a plain function to LocationResolver.
type ResolverFunc func(ctx context.Context, text string) string

func (f ResolverFunc) Resolve(ctx context.Context, text string) string {
	return f(ctx, text)
}

// Fixed always resolves to the same label.
func Fixed(label string) LocationResolver {
	return ResolverFunc(func(context.Context, string) string { return label })
}
