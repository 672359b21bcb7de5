package biz

import "errors"

// 搜索相关错误
var (
	ErrCacheDisabled = errors.New("query cache is disabled")
	ErrNoEngines     = errors.New("no search engines configured")
)
