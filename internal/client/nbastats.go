package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/metrics"
)

// stats.nba.com rejects requests that do not look like they came from nba.com.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.nba.com/",
	"Origin":          "https://www.nba.com",
	"Connection":      "keep-alive",
}

const maxErrorBody = 512

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stats API %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Endpoint is one upstream resource plus its query parameters.
type Endpoint struct {
	Path   string
	Params url.Values
}

// PlayerIndexEndpoint lists every player known for a season.
func PlayerIndexEndpoint(season string) Endpoint {
	return Endpoint{
		Path: "playerindex",
		Params: url.Values{
			"LeagueID": {"00"},
			"Season":   {season},
		},
	}
}

// PlayerGameLogEndpoint lists one player's games for a season and season type.
func PlayerGameLogEndpoint(playerID int, season, seasonType string) Endpoint {
	return Endpoint{
		Path: "playergamelog",
		Params: url.Values{
			"PlayerID":   {strconv.Itoa(playerID)},
			"Season":     {season},
			"SeasonType": {seasonType},
		},
	}
}

// Client is the stats.nba.com API client. It makes exactly one attempt per
// call and bounds the number of requests in flight.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter chan struct{}
}

// NewClient creates a new stats API client
func NewClient(baseURL string, timeout time.Duration, maxConcurrent int) *Client {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	rateLimiter := make(chan struct{}, maxConcurrent)
	for i := 0; i < maxConcurrent; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rateLimiter,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Get fetches ep and returns the raw response body.
func (c *Client) Get(ctx context.Context, ep Endpoint) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.rateLimiter:
		defer func() { c.rateLimiter <- struct{}{} }()
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, ep.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}
	if len(ep.Params) > 0 {
		req.URL.RawQuery = ep.Params.Encode()
	}

	log.Debug().
		Str("url", req.URL.String()).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(ep.Path, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("API request to %s failed: %w", ep.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall(ep.Path, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		log.Warn().
			Str("endpoint", ep.Path).
			Int("status", resp.StatusCode).
			Msg("API request rejected")
		return nil, &StatusError{Endpoint: ep.Path, StatusCode: resp.StatusCode, Body: snippet}
	}

	log.Debug().
		Str("endpoint", ep.Path).
		Int("status", resp.StatusCode).
		Int("size", len(body)).
		Msg("API request successful")

	return body, nil
}
