package service

import (
	"strings"

	"github.com/lk2023060901/metasearch/internal/search/biz"
	"github.com/lk2023060901/metasearch/internal/search/types"
)

// SearchRequest 搜索请求参数
type SearchRequest struct {
	Q          string `form:"q" binding:"required"`
	Engines    string `form:"engines"` // 逗号分隔
	Category   string `form:"category"`
	Language   string `form:"language"`
	SafeSearch int    `form:"safesearch" binding:"min=0,max=2"`
	PageNo     int    `form:"pageno" binding:"min=0"`
	TimeRange  string `form:"time_range" binding:"omitempty,oneof=day week month year"`
}

// ListHistoryRequest 缓存历史分页参数
type ListHistoryRequest struct {
	Offset int64 `form:"offset" binding:"min=0"`
	Count  int64 `form:"count" binding:"min=0,max=100"`
}

// SearchResponse 搜索响应
type SearchResponse struct {
	Query               string                     `json:"query"`
	Cached              bool                       `json:"cached"`
	Engines             []string                   `json:"engines"`
	PageNo              int                        `json:"pageno"`
	NumberOfResults     int                        `json:"number_of_results"`
	Results             []types.Result             `json:"results"`
	Answers             []string                   `json:"answers"`
	Corrections         []string                   `json:"corrections"`
	Infoboxes           []types.Infobox            `json:"infoboxes"`
	Suggestions         []string                   `json:"suggestions"`
	UnresponsiveEngines []types.UnresponsiveEngine `json:"unresponsive_engines"`
	Paging              bool                       `json:"paging"`
}

// HistoryResponse 缓存历史响应
type HistoryResponse struct {
	Offset  int64                `json:"offset"`
	Total   int64                `json:"total"`
	Queries []*types.SearchQuery `json:"queries"`
}

// EnginesResponse 已配置引擎列表
type EnginesResponse struct {
	Engines []string `json:"engines"`
}

func (r *SearchRequest) toQuery() *types.SearchQuery {
	q := &types.SearchQuery{
		Query:      r.Q,
		Category:   r.Category,
		Language:   r.Language,
		SafeSearch: types.SafeSearch(r.SafeSearch),
		PageNo:     r.PageNo,
		TimeRange:  types.TimeRange(r.TimeRange),
	}
	for _, name := range strings.Split(r.Engines, ",") {
		if name = strings.TrimSpace(name); name != "" {
			q.Engines = append(q.Engines, name)
		}
	}
	return q
}

func toSearchResponse(res *biz.SearchResult) *SearchResponse {
	c := res.Container
	return &SearchResponse{
		Query:               res.Query.Query,
		Cached:              res.Cached,
		Engines:             res.Query.Engines,
		PageNo:              res.Query.PageNo,
		NumberOfResults:     c.ResultsNumber,
		Results:             nonNil(c.Results),
		Answers:             nonNil(c.Answers),
		Corrections:         nonNil(c.Corrections),
		Infoboxes:           nonNil(c.Infoboxes),
		Suggestions:         nonNil(c.Suggestions),
		UnresponsiveEngines: nonNil(c.UnresponsiveEngines),
		Paging:              c.Paging,
	}
}

// nonNil 保证 JSON 输出 [] 而不是 null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
