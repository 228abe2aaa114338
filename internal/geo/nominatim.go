package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultNominatimEndpoint = "https://nominatim.openstreetmap.org"

// NominatimGeocoder queries an OpenStreetMap Nominatim search endpoint.
type NominatimGeocoder struct {
	Client    *http.Client
	Endpoint  string
	UserAgent string
	Language  string
}

func NewNominatimGeocoder(endpoint, userAgent, language string) *NominatimGeocoder {
	if endpoint == "" {
		endpoint = DefaultNominatimEndpoint
	}
	if userAgent == "" {
		userAgent = "epiwatch"
	}
	return &NominatimGeocoder{
		Client:    &http.Client{Timeout: 12 * time.Second},
		Endpoint:  strings.TrimRight(endpoint, "/"),
		UserAgent: userAgent,
		Language:  language,
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
}

func (n *NominatimGeocoder) Geocode(ctx context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", ErrNoMatch
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("limit", "1")
	if n.Language != "" {
		params.Set("accept-language", n.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("geocoder status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return "", fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(places) == 0 || strings.TrimSpace(places[0].DisplayName) == "" {
		return "", ErrNoMatch
	}
	return places[0].DisplayName, nil
}
