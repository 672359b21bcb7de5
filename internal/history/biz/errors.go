package biz

import (
	"errors"

	"github.com/lk2023060901/metasearch/internal/history/codec"
)

// 查询缓存相关错误
var (
	// ErrStoreUnavailable 存储后端不可达或操作失败，由 data 层包装底层错误后返回
	ErrStoreUnavailable = errors.New("history store unavailable")
	// ErrCorruptEntry 条目字节无法解码，读路径上按未命中处理
	ErrCorruptEntry = codec.ErrCorruptEntry
	// ErrEntryNotFound 更新一个不存在（或已损坏）的条目
	ErrEntryNotFound = errors.New("history entry not found")
)
