package geo

import (
	"context"
	"errors"
	"time"

	"epiwatch/internal/logger"
)

const maxQueryRunes = 256

// HybridResolver tries the offline gazetteer first and falls back to the
// geocoder. Either stage may be nil.
type HybridResolver struct {
	Gazetteer *CountryMatcher
	Geocoder  Geocoder
	Limiter   *Limiter
	Timeout   time.Duration
	Log       logger.Logger
}

func NewHybridResolver(gazetteer *CountryMatcher, geocoder Geocoder, limiter *Limiter, timeout time.Duration, log logger.Logger) *HybridResolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &HybridResolver{
		Gazetteer: gazetteer,
		Geocoder:  geocoder,
		Limiter:   limiter,
		Timeout:   timeout,
		Log:       log,
	}
}

func (h *HybridResolver) Resolve(ctx context.Context, text string) string {
	// 1) gazetteer
	if h.Gazetteer != nil {
		if country, ok := h.Gazetteer.FindCountry(text); ok {
			return country
		}
	}

	// 2) geocoder
	if h.Geocoder == nil || !worthGeocoding(text) {
		return Unknown
	}

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	if err := h.Limiter.Wait(ctx); err != nil {
		h.Log.Debug("geocode skipped", logger.String("reason", "rate limit wait"), logger.Error(err))
		return Unknown
	}

	address, err := h.Geocoder.Geocode(ctx, truncateRunes(text, maxQueryRunes))
	if err != nil {
		if !errors.Is(err, ErrNoMatch) {
			h.Log.Debug("geocode failed", logger.Error(err))
		}
		return Unknown
	}
	return LabelFromAddress(address)
}
