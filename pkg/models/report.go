package models

import "time"

// Summary is the aggregate report served at /reports/summary.
type Summary struct {
	Totals             SummaryTotals     `json:"summary"`
	Children           []ChildSummary    `json:"children"`
	RecentTransactions []*Transaction    `json:"recent_transactions"`
	Financials         []ChildFinancials `json:"financials"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// SummaryTotals aggregates counts and amounts across all records.
type SummaryTotals struct {
	TotalChildren       int     `json:"total_children"`
	TotalTransactions   int     `json:"total_transactions"`
	TotalChores         int     `json:"total_chores"`
	CompletedChores     int     `json:"completed_chores"`
	TotalAllowancesPaid float64 `json:"total_allowances_paid"`
	TotalChoreEarnings  float64 `json:"total_chore_earnings"`
	TotalSpending       float64 `json:"total_spending"`
	TotalBalances       float64 `json:"total_balances"`
}

// ChildSummary is the per-child row of the summary report.
type ChildSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Balance         float64 `json:"balance"`
	WeeklyAllowance float64 `json:"weekly_allowance"`
}

// ChildFinancials is computed from a child's transaction history.
type ChildFinancials struct {
	ChildID     string  `json:"child_id"`
	Name        string  `json:"name"`
	TotalEarned float64 `json:"total_earned"`
	TotalSpent  float64 `json:"total_spent"`
	Balance     float64 `json:"balance"`
}

// Stats holds record counts, used by the debug endpoint.
type Stats struct {
	Users        int `json:"users"`
	Children     int `json:"children"`
	Transactions int `json:"transactions"`
	Chores       int `json:"chores"`
	Expenditures int `json:"expenditures"`
}
