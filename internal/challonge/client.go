package challonge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/boardtenz/bracketline/internal/metrics"
)

const defaultBaseURL = "https://api.challonge.com/v1"

// APIError is returned for non-success responses from the provider. The
// upstream status and body are preserved so settlement failures are
// diagnosable from the error alone.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("challonge API error (%d): %s", e.StatusCode, e.Body)
}

// APIClient is the HTTP implementation of Client.
type APIClient struct {
	httpClient *http.Client
	apiKey     string
	metrics    metrics.Metrics
	BaseURL    string
}

// NewClient creates a provider client authenticated with the given API key.
func NewClient(apiKey string, m metrics.Metrics) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		metrics:    m,
		BaseURL:    defaultBaseURL,
	}
}

var _ Client = (*APIClient)(nil)

// FetchParticipants fetches all participants of the bracket identified by slug.
func (c *APIClient) FetchParticipants(ctx context.Context, slug string) ([]Participant, error) {
	endpoint := fmt.Sprintf("%s/tournaments/%s/participants.json", c.BaseURL, url.PathEscape(slug))

	var envelopes []participantEnvelope
	if err := c.getJSON(ctx, endpoint, nil, &envelopes); err != nil {
		return nil, err
	}

	participants := make([]Participant, 0, len(envelopes))
	for _, e := range envelopes {
		participants = append(participants, e.Participant)
	}
	log.Debug("Fetched participants", "slug", slug, "count", len(participants))
	return participants, nil
}

// FetchMatches fetches the completed matches of the bracket identified by slug.
func (c *APIClient) FetchMatches(ctx context.Context, slug string) ([]Match, error) {
	endpoint := fmt.Sprintf("%s/tournaments/%s/matches.json", c.BaseURL, url.PathEscape(slug))

	var envelopes []matchEnvelope
	if err := c.getJSON(ctx, endpoint, url.Values{"state": {StateComplete}}, &envelopes); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(envelopes))
	for _, e := range envelopes {
		matches = append(matches, e.Match)
	}
	log.Debug("Fetched matches", "slug", slug, "count", len(matches))
	return matches, nil
}

func (c *APIClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse provider url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.metrics.IncProviderRequests()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error("Received non-OK HTTP status from Challonge API", "status", resp.StatusCode, "body", string(body))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ExtractSlug pulls the bracket slug out of a full provider URL. Returns ""
// when the URL carries no usable path segment.
func ExtractSlug(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	var segments []string
	for _, s := range strings.Split(parsed.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
