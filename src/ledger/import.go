package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"koperasi-server/src/models"
)

// ImportRow is one line of a bulk import, accepted both as a JSON array
// element and as a CSV row.
type ImportRow struct {
	Date        string `json:"date" csv:"date"`
	Amount      string `json:"amount" csv:"amount"`
	Description string `json:"description" csv:"description"`
	Type        string `json:"type,omitempty" csv:"type,omitempty"`
}

// ImportError reports one rejected row by its 1-based line number.
type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ParsedRow is a validated import row ready to become a simple (non-split)
// transaction. Line is the 1-based source line, kept so persist failures
// report the same way parse failures do.
type ParsedRow struct {
	Line        int
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Type        models.TransactionType
}

var importDateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

func parseImportDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// ParseRows validates each row independently. Invalid rows are skipped and
// reported by line number; valid rows come back ready to persist. Partial
// success is the contract — callers apply whatever parsed.
func ParseRows(rows []ImportRow) ([]ParsedRow, []ImportError) {
	var parsed []ParsedRow
	var errs []ImportError

	for i, row := range rows {
		line := i + 1

		date, err := parseImportDate(row.Date)
		if err != nil {
			errs = append(errs, ImportError{Line: line, Message: err.Error()})
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(row.Amount))
		if err != nil {
			errs = append(errs, ImportError{Line: line, Message: fmt.Sprintf("unparseable amount %q", row.Amount)})
			continue
		}
		if amount.IsZero() {
			errs = append(errs, ImportError{Line: line, Message: "amount must be nonzero"})
			continue
		}

		txType, err := inferType(row.Type, amount)
		if err != nil {
			errs = append(errs, ImportError{Line: line, Message: err.Error()})
			continue
		}

		parsed = append(parsed, ParsedRow{
			Line:        line,
			Date:        date,
			Amount:      amount.Abs(),
			Description: strings.TrimSpace(row.Description),
			Type:        txType,
		})
	}
	return parsed, errs
}

// inferType resolves the transaction type from an explicit value when
// present, else from the amount's sign: negative means withdrawal.
func inferType(explicit string, amount decimal.Decimal) (models.TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "":
		if amount.IsNegative() {
			return models.TypeWithdrawal, nil
		}
		return models.TypeDeposit, nil
	case "deposit":
		return models.TypeDeposit, nil
	case "withdrawal":
		return models.TypeWithdrawal, nil
	}
	return "", fmt.Errorf("unknown type %q", explicit)
}

// ReadCSV decodes a CSV import body into rows for ParseRows.
func ReadCSV(data []byte) ([]ImportRow, error) {
	var rows []ImportRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding import csv: %w", err)
	}
	return rows, nil
}
