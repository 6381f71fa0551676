package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"koperasi-server/src/coa"
	"koperasi-server/src/models"
	"koperasi-server/src/reports"
	"koperasi-server/src/util"
)

// reportParams is the shared parameter set of the report endpoints. GET
// variants read it from the query string, POST /filter variants from the
// body; both produce identical payloads.
type reportParams struct {
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	AsOf             string `json:"as_of"`
	Compare          string `json:"compare"`
	CompareStartDate string `json:"compare_start_date"`
	CompareEndDate   string `json:"compare_end_date"`
	CategoryType     string `json:"category_type"`
	CategoryID       string `json:"category_id"`
	VendorID         string `json:"vendor_id"`
	CustomerID       string `json:"customer_id"`
}

func paramsFromQuery(r *http.Request) reportParams {
	q := r.URL.Query()
	return reportParams{
		StartDate:        q.Get("start_date"),
		EndDate:          q.Get("end_date"),
		AsOf:             q.Get("as_of"),
		Compare:          q.Get("compare"),
		CompareStartDate: q.Get("compare_start_date"),
		CompareEndDate:   q.Get("compare_end_date"),
		CategoryType:     q.Get("category_type"),
		CategoryID:       q.Get("category_id"),
		VendorID:         q.Get("vendor_id"),
		CustomerID:       q.Get("customer_id"),
	}
}

func paramsFromBody(r *http.Request) reportParams {
	var p reportParams
	// Malformed bodies fall back to defaults, like malformed dates do.
	_ = json.NewDecoder(r.Body).Decode(&p)
	return p
}

// window resolves the reporting period, falling back to the current month
// for missing or malformed dates.
func (p reportParams) window(now time.Time) (time.Time, time.Time) {
	defStart, defEnd := reports.DefaultRange(now)
	return reports.ParseDateOr(p.StartDate, defStart), reports.ParseDateOr(p.EndDate, defEnd)
}

func (p reportParams) glFilter() reports.GLFilter {
	var f reports.GLFilter
	if p.CategoryType != "" && p.CategoryID != "" {
		ct := models.CategoryType(p.CategoryType)
		if id, err := util.ParseID(p.CategoryID); err == nil && ct.Valid() {
			f.Category = &models.Category{Type: ct, ID: id}
		}
	}
	if id, err := util.ParseID(p.VendorID); err == nil {
		f.VendorID = &id
	}
	if id, err := util.ParseID(p.CustomerID); err == nil {
		f.CustomerID = &id
	}
	return f
}

func serveProfitLoss(pool *pgxpool.Pool, tax coa.Taxonomy, w http.ResponseWriter, r *http.Request, p reportParams) {
	start, end := p.window(time.Now())

	h, err := loadHierarchy(r.Context(), pool)
	if err != nil {
		log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to build profit and loss")
		return
	}

	loadEnd := end
	compStart, compEnd, hasComparison := reports.ComparisonBounds(start, end,
		reports.ComparisonMode(p.Compare),
		reports.ParseDateOr(p.CompareStartDate, time.Time{}),
		reports.ParseDateOr(p.CompareEndDate, time.Time{}))
	if hasComparison && compEnd.After(loadEnd) {
		loadEnd = compEnd
	}

	txs, err := loadLedgerThrough(r.Context(), pool, loadEnd)
	if err != nil {
		log.Printf("ERROR: Failed to load transactions: %v", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to build profit and loss")
		return
	}
	lines := reports.Flatten(txs)

	report := reports.BuildProfitLoss(h, tax, lines, start, end)
	if hasComparison {
		report.Comparison = reports.BuildProfitLoss(h, tax, lines, compStart, compEnd)
	}
	util.WriteJSON(w, http.StatusOK, "profit and loss", report)
}

func ProfitLossReport(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveProfitLoss(pool, tax, w, r, paramsFromQuery(r))
	}
}

func ProfitLossReportFiltered(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveProfitLoss(pool, tax, w, r, paramsFromBody(r))
	}
}

func serveBalanceSheet(pool *pgxpool.Pool, tax coa.Taxonomy, w http.ResponseWriter, r *http.Request, p reportParams) {
	now := time.Now()
	asOf := reports.ParseDateOr(p.AsOf, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))

	h, err := loadHierarchy(r.Context(), pool)
	if err != nil {
		log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to build balance sheet")
		return
	}
	txs, err := loadLedgerThrough(r.Context(), pool, asOf)
	if err != nil {
		log.Printf("ERROR: Failed to load transactions: %v", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to build balance sheet")
		return
	}

	report := reports.BuildBalanceSheet(h, tax, txs, asOf)
	util.WriteJSON(w, http.StatusOK, "balance sheet", report)
}

func BalanceSheetReport(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveBalanceSheet(pool, tax, w, r, paramsFromQuery(r))
	}
}

func BalanceSheetReportFiltered(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveBalanceSheet(pool, tax, w, r, paramsFromBody(r))
	}
}

func serveGeneralLedger(pool *pgxpool.Pool, tax coa.Taxonomy, w http.ResponseWriter, r *http.Request, p reportParams) {
	start, end := p.window(time.Now())

	h, err := loadHierarchy(r.Context(), pool)
	if err != nil {
		log.Printf("ERROR: Failed to load COA hierarchy: %v", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to build general ledger")
		return
	}
	txs, err := loadLedgerThrough(r.Context(), pool, end)
	if err != nil {
		log.Printf("ERROR: Failed to load transactions: %v", err)
		util.WriteError(w, http.StatusInternalServerError, "failed to build general ledger")
		return
	}

	report := reports.BuildGeneralLedger(h, tax, txs, start, end, p.glFilter())
	util.WriteJSON(w, http.StatusOK, "account transactions", report)
}

func GeneralLedgerReport(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveGeneralLedger(pool, tax, w, r, paramsFromQuery(r))
	}
}

func GeneralLedgerReportFiltered(pool *pgxpool.Pool, tax coa.Taxonomy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveGeneralLedger(pool, tax, w, r, paramsFromBody(r))
	}
}

// SplitAllocationReport surfaces split transactions whose lines do not sum
// to the parent amount.
func SplitAllocationReport(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		txs, err := loadLedgerThrough(r.Context(), pool, now)
		if err != nil {
			log.Printf("ERROR: Failed to load transactions: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "failed to check split allocation")
			return
		}
		report := reports.CheckSplitAllocation(txs)
		if report == nil {
			report = []reports.SplitAllocation{}
		}
		util.WriteJSON(w, http.StatusOK, "split allocation", report)
	}
}
