package types

import (
	"sort"
)

// Result represents a single merged search result
type Result struct {
	Title         string   `json:"title" msgpack:"title"`
	URL           string   `json:"url" msgpack:"url"`
	Content       string   `json:"content" msgpack:"content"` // Snippet
	Engine        string   `json:"engine" msgpack:"engine"`   // First engine that returned it
	Engines       []string `json:"engines" msgpack:"engines"` // Every engine that returned it
	Category      string   `json:"category,omitempty" msgpack:"category"`
	Score         float64  `json:"score" msgpack:"score"`
	PublishedDate string   `json:"published_date,omitempty" msgpack:"published_date"` // ISO 8601
	Thumbnail     string   `json:"thumbnail,omitempty" msgpack:"thumbnail"`
}

// InfoboxURL is a link shown inside an infobox
type InfoboxURL struct {
	Title string `json:"title" msgpack:"title"`
	URL   string `json:"url" msgpack:"url"`
}

// Infobox represents a knowledge panel returned by an engine
type Infobox struct {
	Title   string       `json:"infobox" msgpack:"title"`
	ID      string       `json:"id,omitempty" msgpack:"id"`
	Content string       `json:"content,omitempty" msgpack:"content"`
	ImgSrc  string       `json:"img_src,omitempty" msgpack:"img_src"`
	Engine  string       `json:"engine" msgpack:"engine"`
	URLs    []InfoboxURL `json:"urls,omitempty" msgpack:"urls"`
}

// UnresponsiveEngine records an engine that failed to answer and why
type UnresponsiveEngine struct {
	Engine string `json:"engine" msgpack:"engine"`
	Reason string `json:"reason" msgpack:"reason"`
}

// ResultContainer holds everything a search produced for one query
type ResultContainer struct {
	Results             []Result             `json:"results" msgpack:"results"`
	Paging              bool                 `json:"paging" msgpack:"paging"`
	ResultsNumber       int                  `json:"number_of_results" msgpack:"results_number"`
	Answers             []string             `json:"answers" msgpack:"answers"`
	Corrections         []string             `json:"corrections" msgpack:"corrections"`
	Infoboxes           []Infobox            `json:"infoboxes" msgpack:"infoboxes"`
	Suggestions         []string             `json:"suggestions" msgpack:"suggestions"`
	UnresponsiveEngines []UnresponsiveEngine `json:"unresponsive_engines" msgpack:"unresponsive_engines"`
}

// AddUnresponsive records an unresponsive engine. The list is kept unique by
// engine name and sorted; the first reason reported for an engine wins.
func (c *ResultContainer) AddUnresponsive(engine, reason string) {
	i := sort.Search(len(c.UnresponsiveEngines), func(i int) bool {
		return c.UnresponsiveEngines[i].Engine >= engine
	})
	if i < len(c.UnresponsiveEngines) && c.UnresponsiveEngines[i].Engine == engine {
		return
	}
	c.UnresponsiveEngines = append(c.UnresponsiveEngines, UnresponsiveEngine{})
	copy(c.UnresponsiveEngines[i+1:], c.UnresponsiveEngines[i:])
	c.UnresponsiveEngines[i] = UnresponsiveEngine{Engine: engine, Reason: reason}
}

// CacheEntry 缓存条目：查询身份 + 最近一次计算出的结果
type CacheEntry struct {
	Query     SearchQuery     `json:"query" msgpack:"query"`
	Container ResultContainer `json:"container" msgpack:"container"`
}

// NewCacheEntry builds an entry from a query and the container its search produced
func NewCacheEntry(q *SearchQuery, c *ResultContainer) *CacheEntry {
	e := &CacheEntry{Query: *q.Clone()}
	if c != nil {
		e.Container = *c
	}
	return e
}
