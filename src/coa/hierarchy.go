// Package coa loads and indexes the three-level chart of accounts
// (master -> submenu -> account) so reports can resolve any categorization
// to its contributing accounts without further queries.
package coa

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"koperasi-server/src/models"
)

var numericCode = regexp.MustCompile(`^\d+$`)

// Hierarchy is an in-memory index over the active rows of the chart of
// accounts. Build once per request from a bulk load; all lookups are O(1).
type Hierarchy struct {
	Masters  []models.Master
	Submenus []models.Submenu
	Accounts []models.Account

	masterByID       map[int64]*models.Master
	masterByName     map[models.MasterName]*models.Master
	submenuByID      map[int64]*models.Submenu
	submenusByMaster map[int64][]*models.Submenu
	accountByID      map[int64]*models.Account
	accountsBySubmenu map[int64][]*models.Account
}

// Build indexes the given rows, dropping inactive masters, submenus and
// accounts (and anything hanging off an inactive parent). Submenus get
// their master name resolved; accounts get submenu and master names.
func Build(masters []models.Master, submenus []models.Submenu, accounts []models.Account) *Hierarchy {
	h := &Hierarchy{
		masterByID:        make(map[int64]*models.Master),
		masterByName:      make(map[models.MasterName]*models.Master),
		submenuByID:       make(map[int64]*models.Submenu),
		submenusByMaster:  make(map[int64][]*models.Submenu),
		accountByID:       make(map[int64]*models.Account),
		accountsBySubmenu: make(map[int64][]*models.Account),
	}

	for _, m := range masters {
		if !m.Active {
			continue
		}
		h.Masters = append(h.Masters, m)
	}
	for i := range h.Masters {
		m := &h.Masters[i]
		h.masterByID[m.ID] = m
		h.masterByName[m.Name] = m
	}

	for _, s := range submenus {
		if !s.Active {
			continue
		}
		master, ok := h.masterByID[s.MasterID]
		if !ok {
			continue
		}
		s.MasterName = master.Name
		h.Submenus = append(h.Submenus, s)
	}
	for i := range h.Submenus {
		s := &h.Submenus[i]
		h.submenuByID[s.ID] = s
		h.submenusByMaster[s.MasterID] = append(h.submenusByMaster[s.MasterID], s)
	}

	for _, a := range accounts {
		if !a.Active {
			continue
		}
		submenu, ok := h.submenuByID[a.SubmenuID]
		if !ok {
			continue
		}
		a.SubmenuName = submenu.Name
		a.MasterName = submenu.MasterName
		h.Accounts = append(h.Accounts, a)
	}
	for i := range h.Accounts {
		a := &h.Accounts[i]
		h.accountByID[a.ID] = a
		h.accountsBySubmenu[a.SubmenuID] = append(h.accountsBySubmenu[a.SubmenuID], a)
	}

	for _, accts := range h.accountsBySubmenu {
		sortAccounts(accts)
	}
	return h
}

func sortAccounts(accts []*models.Account) {
	sort.SliceStable(accts, func(i, j int) bool {
		ci, cj := "", ""
		if accts[i].Code != nil {
			ci = *accts[i].Code
		}
		if accts[j].Code != nil {
			cj = *accts[j].Code
		}
		if ci != cj {
			return ci < cj
		}
		return accts[i].Name < accts[j].Name
	})
}

// Master returns the master with the given name, if active.
func (h *Hierarchy) Master(name models.MasterName) (*models.Master, bool) {
	m, ok := h.masterByName[name]
	return m, ok
}

// MasterByID returns the master with the given id, if active.
func (h *Hierarchy) MasterByID(id int64) (*models.Master, bool) {
	m, ok := h.masterByID[id]
	return m, ok
}

// Submenu returns the submenu with the given id, if active.
func (h *Hierarchy) Submenu(id int64) (*models.Submenu, bool) {
	s, ok := h.submenuByID[id]
	return s, ok
}

// Account returns the account with the given id, if active.
func (h *Hierarchy) Account(id int64) (*models.Account, bool) {
	a, ok := h.accountByID[id]
	return a, ok
}

// SubmenusFor returns the master's submenus in canonical display order:
// the taxonomy's listed names first, in list order, then the rest
// alphabetically.
func (h *Hierarchy) SubmenusFor(master models.MasterName, tax Taxonomy) []*models.Submenu {
	m, ok := h.masterByName[master]
	if !ok {
		return nil
	}
	subs := append([]*models.Submenu(nil), h.submenusByMaster[m.ID]...)
	rank := make(map[string]int)
	for i, name := range tax.SubmenuOrder[master] {
		rank[name] = i
	}
	sort.SliceStable(subs, func(i, j int) bool {
		ri, iOK := rank[subs[i].Name]
		rj, jOK := rank[subs[j].Name]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return subs[i].Name < subs[j].Name
		}
	})
	return subs
}

// AccountsForSubmenu returns the submenu's accounts ordered by code then
// name.
func (h *Hierarchy) AccountsForSubmenu(submenuID int64) []*models.Account {
	return h.accountsBySubmenu[submenuID]
}

// AccountsUnder resolves a tagged category to the set of account ids it
// aggregates over: the account itself, every account under the submenu, or
// every account under every submenu of the master. This is the single
// resolution path used by all report builders.
func (h *Hierarchy) AccountsUnder(c models.Category) []int64 {
	switch c.Type {
	case models.CategoryAccount:
		if _, ok := h.accountByID[c.ID]; ok {
			return []int64{c.ID}
		}
	case models.CategorySubmenu:
		var ids []int64
		for _, a := range h.accountsBySubmenu[c.ID] {
			ids = append(ids, a.ID)
		}
		return ids
	case models.CategoryMaster:
		var ids []int64
		for _, s := range h.submenusByMaster[c.ID] {
			for _, a := range h.accountsBySubmenu[s.ID] {
				ids = append(ids, a.ID)
			}
		}
		return ids
	}
	return nil
}

// MasterOf resolves the master a category ultimately belongs to.
func (h *Hierarchy) MasterOf(c models.Category) (models.MasterName, bool) {
	switch c.Type {
	case models.CategoryMaster:
		if m, ok := h.masterByID[c.ID]; ok {
			return m.Name, true
		}
	case models.CategorySubmenu:
		if s, ok := h.submenuByID[c.ID]; ok {
			return s.MasterName, true
		}
	case models.CategoryAccount:
		if a, ok := h.accountByID[c.ID]; ok {
			return a.MasterName, true
		}
	}
	return "", false
}

// NextAccountCode computes the next free code under the master's numeric
// range: max numeric code across the master's accounts + 1, or base + 1
// when the master has no numeric codes yet. Legacy non-numeric codes are
// ignored.
func (h *Hierarchy) NextAccountCode(master models.MasterName) (string, error) {
	if !master.Valid() {
		return "", fmt.Errorf("unknown master %q", master)
	}
	maxCode := master.BaseCode()
	m, ok := h.masterByName[master]
	if ok {
		for _, s := range h.submenusByMaster[m.ID] {
			for _, a := range h.accountsBySubmenu[s.ID] {
				if a.Code == nil || !numericCode.MatchString(*a.Code) {
					continue
				}
				n, err := strconv.Atoi(*a.Code)
				if err != nil {
					continue
				}
				if n > maxCode {
					maxCode = n
				}
			}
		}
	}
	return strconv.Itoa(maxCode + 1), nil
}
