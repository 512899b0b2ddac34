package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/types"
)

const (
	defaultMarketplaceURL = "https://api.claudeskills.directory"
	// MaxSearchLimit caps keyword search result counts
	MaxSearchLimit = 100
	// MaxSemanticSearchLimit caps AI-semantic search result counts
	MaxSemanticSearchLimit = 50
)

// SearchRequest describes one marketplace query.
type SearchRequest struct {
	Query     string
	Limit     int
	SortOrder string // stars or recent
	Semantic  bool   // Use the AI-semantic endpoint (lower limit cap)
}

// SearchClient defines the contract for marketplace search. This interface
// enables mocking in tests.
type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) (*types.SearchResponse, error)
}

// Compile-time interface satisfaction check.
var _ SearchClient = (*HTTPSearchClient)(nil)

// HTTPSearchClient queries the skill marketplace over HTTP.
type HTTPSearchClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPSearchClient creates a client for the given marketplace base URL;
// empty means the default marketplace.
func NewHTTPSearchClient(client *http.Client, baseURL string) *HTTPSearchClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultMarketplaceURL
	}
	return &HTTPSearchClient{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Search runs one marketplace query and normalizes the response.
func (c *HTTPSearchClient) Search(ctx context.Context, req SearchRequest) (*types.SearchResponse, error) {
	limit := req.Limit
	endpoint := "/api/search"
	maxLimit := MaxSearchLimit
	if req.Semantic {
		endpoint = "/api/search/semantic"
		maxLimit = MaxSemanticSearchLimit
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("limit", strconv.Itoa(limit))
	if req.SortOrder != "" && !req.Semantic {
		params.Set("sort", req.SortOrder)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, NewNetworkError("marketplace search", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewNetworkError("marketplace search",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, NewNetworkError("marketplace search", err)
	}

	return decodeSearchResponse(data), nil
}

// decodeSearchResponse normalizes the marketplace's known response shapes,
// tried in order: nested-with-pagination, object-with-skills-array, and a
// top-level array. An unrecognized shape degrades to an empty result rather
// than erroring: one flaky marketplace deploy must not break sync.
func decodeSearchResponse(data []byte) *types.SearchResponse {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &types.SearchResponse{}
	}

	// Shape 1: {"data": {"skills": [...], "total": N}}
	var nested struct {
		Data struct {
			Skills []types.RemoteSkill `json:"skills"`
			Total  int                 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &nested); err == nil && nested.Data.Skills != nil {
		return &types.SearchResponse{Skills: nested.Data.Skills, Total: totalOr(nested.Data.Total, len(nested.Data.Skills))}
	}

	// Shape 2: {"skills": [...], "total": N}
	var flat struct {
		Skills []types.RemoteSkill `json:"skills"`
		Total  int                 `json:"total"`
	}
	if err := json.Unmarshal(trimmed, &flat); err == nil && flat.Skills != nil {
		return &types.SearchResponse{Skills: flat.Skills, Total: totalOr(flat.Total, len(flat.Skills))}
	}

	// Shape 3: [...]
	var bare []types.RemoteSkill
	if err := json.Unmarshal(trimmed, &bare); err == nil {
		return &types.SearchResponse{Skills: bare, Total: len(bare)}
	}

	logger.Warn("unrecognized marketplace response shape, treating as empty")
	return &types.SearchResponse{}
}

func totalOr(total, fallback int) int {
	if total > 0 {
		return total
	}
	return fallback
}

// FilterSkills applies subscription author/tag filters client-side over the
// returned metadata. Matching is case-insensitive; an empty filter matches
// everything.
func FilterSkills(skills []types.RemoteSkill, authors, tags []string) []types.RemoteSkill {
	if len(authors) == 0 && len(tags) == 0 {
		return skills
	}

	var filtered []types.RemoteSkill
	for _, skill := range skills {
		if len(authors) > 0 && !containsFold(authors, skill.Author) {
			continue
		}
		if len(tags) > 0 && !anyTagMatch(tags, skill.Tags) {
			continue
		}
		filtered = append(filtered, skill)
	}
	return filtered
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func anyTagMatch(wanted, have []string) bool {
	for _, w := range wanted {
		if containsFold(have, w) {
			return true
		}
	}
	return false
}
