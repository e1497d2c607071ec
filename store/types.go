package store

import (
	"github.com/onramp-one/ramp"
)

// Re-export the basic store types from the root package so that this package
// can be used standalone and by the framework alike.

type (
	ReadOnlyKVStore  = ramp.ReadOnlyKVStore
	KVStore          = ramp.KVStore
	CacheableKVStore = ramp.CacheableKVStore
	KVCacheWrap      = ramp.KVCacheWrap
	CommitKVStore    = ramp.CommitKVStore
	CommitID         = ramp.CommitID
	Iterator         = ramp.Iterator
	Model            = ramp.Model
	SetDeleter       = ramp.SetDeleter
	Batch            = ramp.Batch
)
