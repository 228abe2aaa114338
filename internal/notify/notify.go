// Package notify delivers an alert set to people (email) and to other
// systems (Kafka).
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"epiwatch/internal/alert"
)

const Subject = "EpiWatch: Disease Alerts"

// Notifier delivers a run's alerts. An empty set is not delivered.
type Notifier interface {
	Notify(ctx context.Context, set alert.AlertSet) error
}

// Digest renders one paragraph per alert, separated by a blank line.
func Digest(alerts []alert.Alert) string {
	parts := make([]string, 0, len(alerts))
	for _, a := range alerts {
		parts = append(parts, fmt.Sprintf("%s - %s (%s)\n%s", a.Keyword, a.Title, a.Source, a.Link))
	}
	return strings.Join(parts, "\n\n")
}

// Multi fans a set out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, set alert.AlertSet) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, set); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
