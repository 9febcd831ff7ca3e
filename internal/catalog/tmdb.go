// Package catalog looks content metadata up in a TMDB-compatible API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/httpclient"
)

const upstreamName = "tmdb"

// Config holds the catalog API settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches movie and TV metadata.
type Client struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// New creates a Client with retries and a circuit breaker in front of the API.
func New(cfg Config, logger *slog.Logger) *Client {
	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig(upstreamName),
		logger,
	)
	return NewWithClient(breaker, cfg, logger)
}

// NewWithClient creates a Client over an existing breaker-wrapped client.
func NewWithClient(hc *httpclient.CircuitBreakerClient, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// movieResponse and tvResponse are the subsets of the TMDB payloads we read.
type movieResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	PosterPath  string `json:"poster_path"`
	ReleaseDate string `json:"release_date"`
}

type tvResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	FirstAirDate string `json:"first_air_date"`
}

// Lookup fetches the metadata of one catalog item. Kids content lives in the
// movie section of the upstream catalog.
func (c *Client) Lookup(ctx context.Context, kind domain.ContentKind, externalID int64) (*domain.CatalogEntry, error) {
	section := "movie"
	if kind == domain.KindTV {
		section = "tv"
	}

	id := strconv.FormatInt(externalID, 10)
	endpoint := c.baseURL + "/" + section + "/" + id
	if c.apiKey != "" {
		endpoint += "?" + url.Values{"api_key": {c.apiKey}}.Encode()
	}

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup %s/%s: %w", section, id, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, upstreamName, string(kind), id)
	}
	defer func() { _ = resp.Body.Close() }()

	entry := &domain.CatalogEntry{ExternalID: externalID, Kind: kind}
	var date string
	if kind == domain.KindTV {
		var body tvResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode catalog tv response: %w", err)
		}
		entry.Title, entry.Overview, entry.PosterPath, date = body.Name, body.Overview, body.PosterPath, body.FirstAirDate
	} else {
		var body movieResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode catalog movie response: %w", err)
		}
		entry.Title, entry.Overview, entry.PosterPath, date = body.Title, body.Overview, body.PosterPath, body.ReleaseDate
	}

	if date != "" {
		if t, err := time.Parse(time.DateOnly, date); err == nil {
			entry.ReleaseDate = &t
		} else {
			c.logger.WarnContext(ctx, "catalog returned unparseable date",
				slog.String("kind", string(kind)),
				slog.Int64("external_id", externalID),
				slog.String("date", date),
			)
		}
	}
	return entry, nil
}
