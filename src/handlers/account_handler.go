package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"koperasi-server/src/coa"
	cache "koperasi-server/src/db"
	db "koperasi-server/src/db/sql"
	"koperasi-server/src/ledger"
	"koperasi-server/src/models"
	"koperasi-server/src/util"
)

type submenuGroup struct {
	Submenu  models.Submenu   `json:"submenu"`
	Accounts []models.Account `json:"accounts"`
	Count    int              `json:"count"`
}

type masterGroup struct {
	Master   models.MasterName `json:"master"`
	Submenus []submenuGroup    `json:"submenus"`
	Count    int               `json:"count"`
}

// ListAccounts returns the chart of accounts grouped by master and
// submenu, in canonical display order, with per-group counts.
func ListAccounts(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := loadHierarchy(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to load accounts")
			return
		}

		var groups []masterGroup
		for _, master := range models.AllMasters {
			mg := masterGroup{Master: master}
			for _, sub := range h.SubmenusFor(master, tax) {
				sg := submenuGroup{Submenu: *sub}
				for _, acct := range h.AccountsForSubmenu(sub.ID) {
					sg.Accounts = append(sg.Accounts, *acct)
				}
				sg.Count = len(sg.Accounts)
				mg.Count += sg.Count
				mg.Submenus = append(mg.Submenus, sg)
			}
			groups = append(groups, mg)
		}
		util.WriteJSON(w, http.StatusOK, "accounts", groups)
	}
}

func GetAccount(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "account_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		account, err := db.GetAccountByID(r.Context(), pool, id)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "account not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to get account %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to get account")
			return
		}
		util.WriteJSON(w, http.StatusOK, "account", account)
	}
}

type accountRequest struct {
	SubmenuID int64   `json:"submenu_id"`
	Code      *string `json:"code"`
	Name      string  `json:"name"`
	Currency  string  `json:"currency"`
}

func CreateAccount(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.SubmenuID == 0 || !util.ValidateAccountName(req.Name) {
			util.WriteError(w, http.StatusBadRequest, "submenu_id and a name of 2-100 characters are required")
			return
		}

		h, err := loadHierarchy(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		sub, ok := h.Submenu(req.SubmenuID)
		if !ok {
			util.WriteError(w, http.StatusNotFound, "submenu not found")
			return
		}

		code := req.Code
		if code == nil || *code == "" {
			next, err := h.NextAccountCode(sub.MasterName)
			if err != nil {
				util.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			code = &next
		}
		exists, err := db.AccountCodeExists(r.Context(), pool, *code, 0)
		if err != nil {
			log.Printf("ERROR: Failed to check account code %s: %v", *code, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		if exists {
			util.WriteError(w, http.StatusConflict, "account code already in use")
			return
		}

		currency := req.Currency
		if currency == "" {
			currency = "IDR"
		}
		created, err := db.CreateAccount(r.Context(), pool, &models.Account{
			SubmenuID: req.SubmenuID,
			Code:      code,
			Name:      req.Name,
			Currency:  currency,
		})
		if err != nil {
			log.Printf("ERROR: Failed to create account %s: %v", req.Name, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
		cache.ClearAllHierarchyCaches()
		log.Printf("INFO: Created account id %d (%s) under submenu %d", created.ID, created.Name, created.SubmenuID)
		util.WriteJSON(w, http.StatusCreated, "account created", created)
	}
}

func UpdateAccount(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "account_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		var req accountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.SubmenuID == 0 || !util.ValidateAccountName(req.Name) {
			util.WriteError(w, http.StatusBadRequest, "submenu_id and a name of 2-100 characters are required")
			return
		}

		existing, err := db.GetAccountByID(r.Context(), pool, id)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "account not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to load account %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update account")
			return
		}

		code := req.Code
		if code == nil || *code == "" {
			code = existing.Code
		}
		if code != nil {
			exists, err := db.AccountCodeExists(r.Context(), pool, *code, id)
			if err != nil {
				log.Printf("ERROR: Failed to check account code %s: %v", *code, err)
				util.WriteError(w, http.StatusInternalServerError, "failed to update account")
				return
			}
			if exists {
				util.WriteError(w, http.StatusConflict, "account code already in use")
				return
			}
		}

		currency := req.Currency
		if currency == "" {
			currency = existing.Currency
		}
		updated, err := db.UpdateAccount(r.Context(), pool, &models.Account{
			ID:        id,
			SubmenuID: req.SubmenuID,
			Code:      code,
			Name:      req.Name,
			Currency:  currency,
		})
		if err != nil {
			log.Printf("ERROR: Failed to update account %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to update account")
			return
		}
		cache.ClearAllHierarchyCaches()
		log.Printf("INFO: Updated account id %d", id)
		util.WriteJSON(w, http.StatusOK, "account updated", updated)
	}
}

func DeleteAccount(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "account_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		if err := db.SoftDeleteAccount(r.Context(), pool, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				util.WriteError(w, http.StatusNotFound, "account not found")
				return
			}
			log.Printf("ERROR: Failed to delete account %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete account")
			return
		}
		cache.ClearAllHierarchyCaches()
		log.Printf("INFO: Soft-deleted account id %d", id)
		util.WriteJSON(w, http.StatusOK, "account deleted", nil)
	}
}

// RecomputeAccountBalance rebuilds the cached balance strictly from the
// transaction log, repairing any drift from interrupted mutations.
func RecomputeAccountBalance(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := util.ParseID(chi.URLParam(r, "account_id"))
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		txs, err := db.GetAllAccountTransactions(r.Context(), pool, id)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions for account %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to recompute balance")
			return
		}
		balance := ledger.Recompute(txs)
		if err := db.SetAccountBalance(r.Context(), pool, id, balance); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				util.WriteError(w, http.StatusNotFound, "account not found")
				return
			}
			log.Printf("ERROR: Failed to set balance for account %d: %v", id, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to recompute balance")
			return
		}
		cache.ClearAllHierarchyCaches()
		log.Printf("INFO: Recomputed balance for account %d from %d transactions", id, len(txs))
		util.WriteJSON(w, http.StatusOK, "balance recomputed", map[string]interface{}{"account_id": id, "balance": balance})
	}
}

func ListMasters(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		masters, err := db.GetMasters(r.Context(), pool)
		if err != nil {
			log.Printf("ERROR: Failed to list masters: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to list masters")
			return
		}
		util.WriteJSON(w, http.StatusOK, "masters", masters)
	}
}

func ListSubmenusByMaster(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		master := models.MasterName(chi.URLParam(r, "master"))
		if !master.Valid() {
			util.WriteError(w, http.StatusBadRequest, "unknown master type")
			return
		}
		submenus, err := db.GetSubmenusByMaster(r.Context(), pool, master)
		if err != nil {
			log.Printf("ERROR: Failed to list submenus for %s: %v", master, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to list submenus")
			return
		}
		util.WriteJSON(w, http.StatusOK, "submenus", submenus)
	}
}

// LegacySubmenusByType serves the old client shape: the master type
// arrives in "master_type" or the legacy "type" field and the response is
// a bare array, not an envelope. Preserved for backward compatibility.
func LegacySubmenusByType(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MasterType string `json:"master_type"`
			Type       string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		raw := req.MasterType
		if raw == "" {
			raw = req.Type
		}
		master := models.MasterName(raw)
		if !master.Valid() {
			util.WriteError(w, http.StatusBadRequest, "unknown master type")
			return
		}
		submenus, err := db.GetSubmenusByMaster(r.Context(), pool, master)
		if err != nil {
			log.Printf("ERROR: Failed to list submenus for %s: %v", master, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to list submenus")
			return
		}
		if submenus == nil {
			submenus = []models.Submenu{}
		}
		util.WriteRaw(w, http.StatusOK, submenus)
	}
}
