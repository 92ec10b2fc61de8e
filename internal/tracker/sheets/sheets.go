// Package sheets mirrors expenditures to a Google spreadsheet, one row per
// expenditure: date, child, amount, description, id.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

// Header is the expected first row of the sheet. Rows equal to it are skipped when reading.
var Header = []any{"Date", "Child", "Amount", "Description", "ID"}

// Mirror appends expenditures to, and reads them back from, a sheet range.
type Mirror struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	rangeName     string
}

// New builds a Mirror. Credentials come from opts, typically
// option.WithCredentialsFile, or from application default credentials.
func New(ctx context.Context, spreadsheetID, rangeName string, opts ...option.ClientOption) (*Mirror, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	opts = append([]option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}, opts...)
	srv, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &Mirror{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		rangeName:     rangeName,
	}, nil
}

// AppendExpenditure adds one row. Values are written raw so dates stay strings.
func (m *Mirror) AppendExpenditure(ctx context.Context, exp *models.Expenditure) error {
	vr := &sheetsapi.ValueRange{Values: [][]any{EncodeRow(exp)}}
	_, err := m.values.Append(m.spreadsheetID, m.rangeName, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return errs.Wrap(errs.KindUpstream, "failed to append expenditure to sheet", err)
	}
	return nil
}

// ListExpenditures reads every row of the range. Rows that cannot be decoded
// are returned in skipped rather than failing the read.
func (m *Mirror) ListExpenditures(ctx context.Context) (exps []*models.Expenditure, skipped int, err error) {
	resp, err := m.values.Get(m.spreadsheetID, m.rangeName).Context(ctx).Do()
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindUpstream, "failed to read sheet", err)
	}
	for _, row := range resp.Values {
		if isHeader(row) {
			continue
		}
		exp, err := DecodeRow(row)
		if err != nil {
			skipped++
			continue
		}
		exps = append(exps, exp)
	}
	return exps, skipped, nil
}

func EncodeRow(exp *models.Expenditure) []any {
	return []any{
		exp.Date,
		exp.ChildName,
		strconv.FormatFloat(exp.Amount, 'f', 2, 64),
		exp.Description,
		exp.ID,
	}
}

// DecodeRow parses a row written by EncodeRow. Rows written by hand may omit
// the child and id columns.
func DecodeRow(row []any) (*models.Expenditure, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("row has %d columns, want at least 4", len(row))
	}
	amount, err := parseAmount(row[2])
	if err != nil {
		return nil, err
	}
	exp := &models.Expenditure{
		Date:        cell(row, 0),
		ChildName:   cell(row, 1),
		Amount:      amount,
		Description: cell(row, 3),
		ID:          cell(row, 4),
	}
	if exp.Date == "" {
		return nil, fmt.Errorf("row has no date")
	}
	return exp, nil
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func parseAmount(v any) (float64, error) {
	switch a := v.(type) {
	case float64:
		return a, nil
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(a), "$")
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", a, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("invalid amount %v", v)
	}
}

func isHeader(row []any) bool {
	return len(row) > 0 && strings.EqualFold(cell(row, 0), "date")
}
