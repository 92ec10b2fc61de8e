package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

func TestSummary(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	alice, err := svc.CreateChild(ctx, &models.Child{Name: "Alice", WeeklyAllowance: 5})
	require.NoError(t, err)
	bob, err := svc.CreateChild(ctx, &models.Child{Name: "Bob", WeeklyAllowance: 3})
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := svc.CreateTransaction(ctx, &models.Transaction{ChildID: alice.ID, Amount: 5, Type: models.TransactionTypeAllowance})
		require.NoError(t, err)
		_, err = svc.CreateTransaction(ctx, &models.Transaction{ChildID: bob.ID, Amount: 1, Type: models.TransactionTypeSpending})
		require.NoError(t, err)
	}
	chore, err := svc.CreateChore(ctx, &models.Chore{Name: "Dishes", Value: 2, AssignedTo: bob.ID})
	require.NoError(t, err)
	_, err = svc.CreateChore(ctx, &models.Chore{Name: "Laundry", Value: 3})
	require.NoError(t, err)
	_, err = svc.CompleteChore(ctx, chore.ID)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)

	totals := summary.Totals
	assert.Equal(t, 2, totals.TotalChildren)
	assert.Equal(t, 13, totals.TotalTransactions)
	assert.Equal(t, 2, totals.TotalChores)
	assert.Equal(t, 1, totals.CompletedChores)
	assert.InDelta(t, 30, totals.TotalAllowancesPaid, 1e-9)
	assert.InDelta(t, 2, totals.TotalChoreEarnings, 1e-9)
	assert.InDelta(t, 6, totals.TotalSpending, 1e-9)
	assert.InDelta(t, 26, totals.TotalBalances, 1e-9)

	require.Len(t, summary.Children, 2)
	assert.Equal(t, "Alice", summary.Children[0].Name)
	assert.InDelta(t, 30, summary.Children[0].Balance, 1e-9)

	require.Len(t, summary.RecentTransactions, 10)
	assert.Equal(t, models.TransactionTypeChore, summary.RecentTransactions[0].Type)

	require.Len(t, summary.Financials, 2)
	assert.Equal(t, models.ChildFinancials{ChildID: bob.ID, Name: "Bob", TotalEarned: 2, TotalSpent: 6, Balance: -4}, summary.Financials[1])
}

func TestChildFinancials(t *testing.T) {
	children := []*models.Child{{ID: "a", Name: "A"}}
	txns := []*models.Transaction{
		{ChildID: "a", Amount: 4, Type: models.TransactionTypeAllowance},
		{ChildID: "a", Amount: 1, Type: models.TransactionTypeChore},
		{ChildID: "a", Amount: 2, Type: models.TransactionTypeSpending},
		{ChildID: "a", Amount: -1, Type: models.TransactionTypeAdjustment},
		{ChildID: "a", Amount: 0.5, Type: models.TransactionTypeAdjustment},
		{ChildID: "gone", Amount: 100, Type: models.TransactionTypeAllowance},
	}
	got := ChildFinancials(children, txns)
	require.Len(t, got, 1)
	assert.InDelta(t, 5.5, got[0].TotalEarned, 1e-9)
	assert.InDelta(t, 3, got[0].TotalSpent, 1e-9)
	assert.InDelta(t, 2.5, got[0].Balance, 1e-9)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.GetOrCreateUser(ctx, auth.Identity{Email: "a@example.com"})
	require.NoError(t, err)
	child, err := svc.CreateChild(ctx, &models.Child{Name: "Alice"})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, &models.Transaction{ChildID: child.ID, Amount: 1, Type: models.TransactionTypeAllowance})
	require.NoError(t, err)
	_, err = svc.CreateExpenditure(ctx, &models.Expenditure{Amount: 1, Date: "2025-01-01", Description: "x"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Stats{Users: 1, Children: 1, Transactions: 1, Chores: 0, Expenditures: 1}, stats)
}
