package types

import (
	"fmt"
	"slices"
	"strings"
)

// SafeSearch 安全搜索级别
type SafeSearch int

const (
	SafeSearchOff      SafeSearch = 0
	SafeSearchModerate SafeSearch = 1
	SafeSearchStrict   SafeSearch = 2
)

// Valid reports whether s is a known level
func (s SafeSearch) Valid() bool {
	return s >= SafeSearchOff && s <= SafeSearchStrict
}

func (s SafeSearch) String() string {
	switch s {
	case SafeSearchOff:
		return "off"
	case SafeSearchModerate:
		return "moderate"
	case SafeSearchStrict:
		return "strict"
	default:
		return fmt.Sprintf("safesearch(%d)", int(s))
	}
}

// TimeRange 时间范围过滤，空字符串表示不过滤
type TimeRange string

const (
	TimeRangeNone  TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// Valid reports whether t is a known time range
func (t TimeRange) Valid() bool {
	switch t {
	case TimeRangeNone, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear:
		return true
	}
	return false
}

// SearchQuery 查询的身份：七个字段全部相等时两个查询在缓存上等价
type SearchQuery struct {
	Query      string     `json:"query" msgpack:"query"`
	Engines    []string   `json:"engines" msgpack:"engines"`
	Category   string     `json:"category" msgpack:"category"`
	Language   string     `json:"language" msgpack:"language"`
	SafeSearch SafeSearch `json:"safesearch" msgpack:"safesearch"`
	PageNo     int        `json:"pageno" msgpack:"pageno"`
	TimeRange  TimeRange  `json:"time_range" msgpack:"time_range"`
}

// Validate validates the query before it is searched or cached
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if len(q.Query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	if len(q.Engines) == 0 {
		return ErrNoEngines
	}
	if q.PageNo < 1 {
		return fmt.Errorf("%w: pageno must be >= 1", ErrInvalidQuery)
	}
	if !q.SafeSearch.Valid() {
		return fmt.Errorf("%w: unknown safesearch level %d", ErrInvalidQuery, q.SafeSearch)
	}
	if !q.TimeRange.Valid() {
		return fmt.Errorf("%w: unknown time range %q", ErrInvalidQuery, q.TimeRange)
	}
	return nil
}

// Equal reports cache equivalence: all seven identity fields equal, engines compared in order
func (q *SearchQuery) Equal(other *SearchQuery) bool {
	if q == nil || other == nil {
		return q == other
	}
	return q.Query == other.Query &&
		slices.Equal(q.Engines, other.Engines) &&
		q.Category == other.Category &&
		q.Language == other.Language &&
		q.SafeSearch == other.SafeSearch &&
		q.PageNo == other.PageNo &&
		q.TimeRange == other.TimeRange
}

// Clone returns a deep copy
func (q *SearchQuery) Clone() *SearchQuery {
	c := *q
	if q.Engines != nil {
		c.Engines = slices.Clone(q.Engines)
	}
	return &c
}

// MaxQueryLength 查询字符串最大长度
const MaxQueryLength = 1000
