package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearAllTransactionCaches(t *testing.T) {
	InitCache()

	SetTransactionCache("transactions:all", []int64{1, 2})
	SetTransactionCache("transactions:account:7", []int64{2})
	Cache.Wait()

	_, found := Cache.Get("transactions:all")
	require.True(t, found)

	// Any ledger mutation, reviewed toggles included, must drop the whole
	// family so list reads never serve a stale flag.
	ClearAllTransactionCaches()
	Cache.Wait()

	_, found = Cache.Get("transactions:all")
	assert.False(t, found)
	_, found = Cache.Get("transactions:account:7")
	assert.False(t, found)

	TransactionCacheKeys.RLock()
	assert.Empty(t, TransactionCacheKeys.m, "key registry resets with the entries")
	TransactionCacheKeys.RUnlock()
}

func TestClearAllHierarchyCaches(t *testing.T) {
	InitCache()

	SetHierarchyCache("coa:hierarchy", struct{}{})
	Cache.Wait()

	_, found := Cache.Get("coa:hierarchy")
	require.True(t, found)

	ClearAllHierarchyCaches()
	Cache.Wait()

	_, found = Cache.Get("coa:hierarchy")
	assert.False(t, found)
}
