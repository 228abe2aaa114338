package pipeline

import (
	"errors"
	"fmt"
	"time"

	"epiwatch/internal/discovery"
	"epiwatch/internal/filter"
)

// ErrInvalidRequest is returned before any source is fetched.
var ErrInvalidRequest = errors.New("invalid request")

// Request is one run's input. Start and End are compared as calendar dates.
type Request struct {
	Sources    []discovery.SourceDescriptor
	Vocabulary []string
	Start      time.Time
	End        time.Time
}

// Validate checks the request and returns the normalized vocabulary.
func (r Request) Validate() ([]string, error) {
	vocab := filter.NormalizeVocabulary(r.Vocabulary)
	if len(vocab) == 0 {
		return nil, fmt.Errorf("%w: vocabulary is empty", ErrInvalidRequest)
	}
	if filter.Date(r.Start).After(filter.Date(r.End)) {
		return nil, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidRequest, r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	return vocab, nil
}
