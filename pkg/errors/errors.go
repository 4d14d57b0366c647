package errors

import "errors"

// ErrSnapshotNotFound 缓存中没有课表快照
var ErrSnapshotNotFound = errors.New("课表快照不存在")

// ErrCacheMiss 缓存键不存在
var ErrCacheMiss = errors.New("缓存未命中")
