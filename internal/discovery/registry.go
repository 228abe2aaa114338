package discovery

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Registry dispatches a source to the adapter for its kind.
type Registry struct {
	adapters map[SourceKind]Adapter
}

func NewRegistry(client *http.Client, userAgent string, timeout time.Duration) *Registry {
	return &Registry{
		adapters: map[SourceKind]Adapter{
			KindFeed: NewFeedAdapter(client, userAgent, timeout),
			KindPage: NewPageAdapter(client, userAgent, timeout),
		},
	}
}

// Register replaces the adapter for kind.
func (r *Registry) Register(kind SourceKind, a Adapter) {
	r.adapters[kind] = a
}

func (r *Registry) Fetch(ctx context.Context, src SourceDescriptor) ([]RawCandidate, error) {
	a, ok := r.adapters[src.Kind]
	if !ok {
		return nil, &FetchError{Source: src.Name, Kind: FailureParse, Err: fmt.Errorf("no adapter for kind %q", src.Kind)}
	}
	return a.Fetch(ctx, src)
}
