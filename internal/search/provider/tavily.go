package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lk2023060901/metasearch/internal/search/types"
)

// tavilyPageSize results per page; Tavily has no native paging
const tavilyPageSize = 10

// TavilyEngine implements the Tavily search API
type TavilyEngine struct {
	*BaseEngine
}

// NewTavilyEngine creates a new Tavily engine
func NewTavilyEngine(config *types.EngineConfig) (Engine, error) {
	return &TavilyEngine{BaseEngine: NewBaseEngine(config)}, nil
}

// tavilyRequest represents a Tavily API request
type tavilyRequest struct {
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"`
	SearchDepth   string `json:"search_depth,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
	TimeRange     string `json:"time_range,omitempty"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
}

// tavilyResponse represents a Tavily API response
type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date,omitempty"`
	} `json:"results"`
	Query string `json:"query"`
}

// Search executes a query using the Tavily API
func (e *TavilyEngine) Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error) {
	page := max(q.PageNo, 1)

	tavilyReq := tavilyRequest{
		Query:         q.Query,
		SearchDepth:   "basic",
		MaxResults:    tavilyPageSize * page,
		TimeRange:     string(q.TimeRange),
		IncludeAnswer: page == 1,
	}
	if e.categoryFor(q) == "news" {
		tavilyReq.Topic = "news"
	}

	reqBody, err := json.Marshal(tavilyReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/search", strings.TrimRight(e.config.APIHost, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	e.setDefaultHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.APIKey())

	resp, err := e.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(e.Name(), resp)
	}

	var tavilyResp tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tavilyResp); err != nil {
		return nil, &types.EngineError{
			Engine:  e.Name(),
			Code:    "INVALID_RESPONSE",
			Message: "failed to decode response",
			Err:     fmt.Errorf("%w: %w", types.ErrInvalidResponse, err),
		}
	}

	c := &types.ResultContainer{}
	if tavilyResp.Answer != "" {
		c.Answers = []string{tavilyResp.Answer}
	}

	category := e.categoryFor(q)
	skip := tavilyPageSize * (page - 1)
	for i, r := range tavilyResp.Results {
		if i < skip || r.URL == "" {
			continue
		}
		c.Results = append(c.Results, types.Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Engine:        e.Name(),
			Engines:       []string{e.Name()},
			Category:      category,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	c.ResultsNumber = len(tavilyResp.Results)
	// 返回满一页时认为还有下一页
	c.Paging = len(tavilyResp.Results) >= tavilyPageSize*page

	return c, nil
}
