package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"koperasi-server/src/coa"
	cache "koperasi-server/src/db"
	db "koperasi-server/src/db/sql"
	"koperasi-server/src/models"
)

const hierarchyCacheKey = "coa:hierarchy"

// loadHierarchy builds the COA index from the store, serving repeat reads
// from the cache until a COA mutation clears it.
func loadHierarchy(ctx context.Context, pool *pgxpool.Pool) (*coa.Hierarchy, error) {
	if cached, found := cache.Cache.Get(hierarchyCacheKey); found {
		if h, ok := cached.(*coa.Hierarchy); ok {
			return h, nil
		}
	}

	masters, err := db.GetMasters(ctx, pool)
	if err != nil {
		return nil, err
	}
	submenus, err := db.GetSubmenus(ctx, pool)
	if err != nil {
		return nil, err
	}
	accounts, err := db.GetAccounts(ctx, pool)
	if err != nil {
		return nil, err
	}

	h := coa.Build(masters, submenus, accounts)
	cache.SetHierarchyCache(hierarchyCacheKey, h)
	return h, nil
}

// loadLedgerThrough loads every transaction (with splits) dated on or
// before end for the report builders.
func loadLedgerThrough(ctx context.Context, pool *pgxpool.Pool, end time.Time) ([]models.Transaction, error) {
	return db.GetTransactionsThrough(ctx, pool, end)
}

// categoryName resolves a tagged category to its display name.
func categoryName(h *coa.Hierarchy, c models.Category) string {
	switch c.Type {
	case models.CategoryMaster:
		if m, ok := h.MasterByID(c.ID); ok {
			return string(m.Name)
		}
	case models.CategorySubmenu:
		if s, ok := h.Submenu(c.ID); ok {
			return s.Name
		}
	case models.CategoryAccount:
		if a, ok := h.Account(c.ID); ok {
			return a.Name
		}
	}
	return ""
}
