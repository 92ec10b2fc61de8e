package service

import (
	"context"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
)

func (s *trackerServiceImpl) Summary(ctx context.Context) (*models.Summary, error) {
	children, err := s.db.ListChildren(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := s.db.ListTransactions(ctx, nil)
	if err != nil {
		return nil, err
	}
	chores, err := s.db.ListChores(ctx, nil)
	if err != nil {
		return nil, err
	}

	summary := &models.Summary{
		Children:           make([]models.ChildSummary, 0, len(children)),
		RecentTransactions: make([]*models.Transaction, 0, recentTransactionsLimit),
		GeneratedAt:        s.timestamp(),
	}
	totals := &summary.Totals
	totals.TotalChildren = len(children)
	totals.TotalTransactions = len(txns)
	totals.TotalChores = len(chores)

	for _, c := range chores {
		if c.Completed {
			totals.CompletedChores++
		}
	}
	for _, t := range txns {
		switch t.Type {
		case models.TransactionTypeAllowance:
			totals.TotalAllowancesPaid += t.Amount
		case models.TransactionTypeChore:
			totals.TotalChoreEarnings += t.Amount
		case models.TransactionTypeSpending:
			totals.TotalSpending += t.Amount
		}
	}
	for _, c := range children {
		totals.TotalBalances += c.CurrentBalance
		summary.Children = append(summary.Children, models.ChildSummary{
			ID:              c.ID,
			Name:            c.Name,
			Balance:         c.CurrentBalance,
			WeeklyAllowance: c.WeeklyAllowance,
		})
	}

	// ListTransactions is newest first.
	for i := 0; i < len(txns) && i < recentTransactionsLimit; i++ {
		summary.RecentTransactions = append(summary.RecentTransactions, txns[i])
	}
	summary.Financials = ChildFinancials(children, txns)
	return summary, nil
}

// ChildFinancials totals each child's earnings and spending from its
// transactions. Negative adjustments count as spending.
func ChildFinancials(children []*models.Child, txns []*models.Transaction) []models.ChildFinancials {
	byChild := make(map[string]*models.ChildFinancials, len(children))
	out := make([]models.ChildFinancials, len(children))
	for i, c := range children {
		out[i] = models.ChildFinancials{ChildID: c.ID, Name: c.Name}
		byChild[c.ID] = &out[i]
	}
	for _, t := range txns {
		f, ok := byChild[t.ChildID]
		if !ok {
			continue
		}
		delta := t.Type.BalanceDelta(t.Amount)
		if delta >= 0 {
			f.TotalEarned += delta
		} else {
			f.TotalSpent -= delta
		}
	}
	for i := range out {
		out[i].Balance = out[i].TotalEarned - out[i].TotalSpent
	}
	return out
}

func (s *trackerServiceImpl) Stats(ctx context.Context) (*models.Stats, error) {
	users, err := s.db.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	children, err := s.db.ListChildren(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := s.db.ListTransactions(ctx, nil)
	if err != nil {
		return nil, err
	}
	chores, err := s.db.ListChores(ctx, nil)
	if err != nil {
		return nil, err
	}
	exps, err := s.db.ListExpenditures(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &models.Stats{
		Users:        len(users),
		Children:     len(children),
		Transactions: len(txns),
		Chores:       len(chores),
		Expenditures: len(exps),
	}, nil
}
