package db

import (
	"log"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// Storing cache keys in concurrent data structures to allow for clearing
// all caches of a certain type: COA hierarchy snapshots and per-account
// transaction lists. Any ledger or COA mutation clears the affected family.
var (
	Cache              *ristretto.Cache
	HierarchyCacheKeys = struct {
		sync.RWMutex
		m map[string]struct{}
	}{m: make(map[string]struct{})}
	TransactionCacheKeys = struct {
		sync.RWMutex
		m map[string]struct{}
	}{m: make(map[string]struct{})}
)

func InitCache() {
	var err error
	Cache, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
}

// Hierarchy Cache Functions
func SetHierarchyCache(cacheKey string, value interface{}) {
	HierarchyCacheKeys.Lock()
	HierarchyCacheKeys.m[cacheKey] = struct{}{}
	HierarchyCacheKeys.Unlock()
	Cache.Set(cacheKey, value, 1)
}

func ClearAllHierarchyCaches() {
	HierarchyCacheKeys.Lock()
	for key := range HierarchyCacheKeys.m {
		Cache.Del(key)
	}
	HierarchyCacheKeys.m = make(map[string]struct{})
	HierarchyCacheKeys.Unlock()
}

// Transaction Cache Functions
func SetTransactionCache(cacheKey string, value interface{}) {
	TransactionCacheKeys.Lock()
	TransactionCacheKeys.m[cacheKey] = struct{}{}
	TransactionCacheKeys.Unlock()
	Cache.Set(cacheKey, value, 1)
}

func ClearAllTransactionCaches() {
	TransactionCacheKeys.Lock()
	for key := range TransactionCacheKeys.m {
		Cache.Del(key)
	}
	TransactionCacheKeys.m = make(map[string]struct{})
	TransactionCacheKeys.Unlock()
}
