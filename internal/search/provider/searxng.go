package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lk2023060901/metasearch/internal/search/types"
	"github.com/tidwall/gjson"
)

// SearXNGEngine queries a SearXNG instance through its JSON API
type SearXNGEngine struct {
	*BaseEngine
}

// NewSearXNGEngine creates a new SearXNG engine
func NewSearXNGEngine(config *types.EngineConfig) (Engine, error) {
	return &SearXNGEngine{BaseEngine: NewBaseEngine(config)}, nil
}

func (e *SearXNGEngine) buildURL(q *types.SearchQuery) string {
	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("format", "json")
	params.Set("pageno", strconv.Itoa(max(q.PageNo, 1)))
	params.Set("safesearch", strconv.Itoa(int(q.SafeSearch)))

	if category := e.categoryFor(q); category != "" {
		params.Set("categories", category)
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.TimeRange != types.TimeRangeNone {
		params.Set("time_range", string(q.TimeRange))
	}

	return fmt.Sprintf("%s/search?%s", strings.TrimRight(e.config.APIHost, "/"), params.Encode())
}

// Search executes a query using the SearXNG API
func (e *SearXNGEngine) Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.buildURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	e.setDefaultHeaders(httpReq)

	// Basic Auth (if configured)
	if e.config.BasicAuthUsername != "" {
		httpReq.SetBasicAuth(e.config.BasicAuthUsername, e.config.BasicAuthPassword)
	}

	resp, err := e.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(e.Name(), resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.requestError(err)
	}

	return e.parse(body, q)
}

// parse converts a SearXNG JSON document into a result container.
// Unknown fields are ignored; answers may be plain strings or objects
// depending on the instance version.
func (e *SearXNGEngine) parse(body []byte, q *types.SearchQuery) (*types.ResultContainer, error) {
	if !gjson.ValidBytes(body) {
		return nil, &types.EngineError{
			Engine:  e.Name(),
			Code:    "INVALID_RESPONSE",
			Message: "response is not valid JSON",
			Err:     types.ErrInvalidResponse,
		}
	}
	doc := gjson.ParseBytes(body)
	category := e.categoryFor(q)

	c := &types.ResultContainer{
		ResultsNumber: int(doc.Get("number_of_results").Int()),
	}

	doc.Get("results").ForEach(func(_, r gjson.Result) bool {
		u := r.Get("url").String()
		if u == "" {
			return true
		}

		result := types.Result{
			Title:         r.Get("title").String(),
			URL:           u,
			Content:       r.Get("content").String(),
			Engine:        e.Name(),
			Engines:       []string{e.Name()},
			Category:      firstNonEmpty(r.Get("category").String(), category),
			Score:         r.Get("score").Float(),
			PublishedDate: r.Get("publishedDate").String(),
			Thumbnail:     firstNonEmpty(r.Get("thumbnail").String(), r.Get("img_src").String()),
		}
		c.Results = append(c.Results, result)
		return true
	})
	c.Paging = len(c.Results) > 0

	doc.Get("answers").ForEach(func(_, a gjson.Result) bool {
		text := a.String()
		if a.IsObject() {
			text = a.Get("answer").String()
		}
		if text != "" {
			c.Answers = append(c.Answers, text)
		}
		return true
	})

	c.Corrections = stringArray(doc.Get("corrections"))
	c.Suggestions = stringArray(doc.Get("suggestions"))

	doc.Get("infoboxes").ForEach(func(_, ib gjson.Result) bool {
		box := types.Infobox{
			Title:   ib.Get("infobox").String(),
			ID:      ib.Get("id").String(),
			Content: ib.Get("content").String(),
			ImgSrc:  ib.Get("img_src").String(),
			Engine:  e.Name(),
		}
		ib.Get("urls").ForEach(func(_, u gjson.Result) bool {
			box.URLs = append(box.URLs, types.InfoboxURL{
				Title: u.Get("title").String(),
				URL:   u.Get("url").String(),
			})
			return true
		})
		c.Infoboxes = append(c.Infoboxes, box)
		return true
	})

	// [[engine, reason], ...]
	doc.Get("unresponsive_engines").ForEach(func(_, pair gjson.Result) bool {
		name := pair.Get("0").String()
		if name != "" {
			c.AddUnresponsive(name, pair.Get("1").String())
		}
		return true
	})

	return c, nil
}

func stringArray(v gjson.Result) []string {
	var out []string
	v.ForEach(func(_, s gjson.Result) bool {
		if str := s.String(); str != "" {
			out = append(out, str)
		}
		return true
	})
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
