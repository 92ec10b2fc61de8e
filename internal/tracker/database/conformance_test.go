package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

// backends lists every store the shared suite runs against.
func backends() map[string]func(t *testing.T) database.Database {
	return map[string]func(t *testing.T) database.Database{
		"memory":   func(_ *testing.T) database.Database { return NewMemory() },
		"sqlite":   NewTestDB,
		"postgres": NewTestPostgres,
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, db database.Database)) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUsers(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db database.Database) {
		ctx := context.Background()
		picture := "https://example.com/a.png"
		u := &models.User{
			Email:     "parent@example.com",
			Name:      "Parent",
			GoogleID:  "g-1",
			Picture:   &picture,
			IsActive:  true,
			CreatedAt: base,
		}
		require.NoError(t, db.CreateUser(ctx, u))

		err := db.CreateUser(ctx, &models.User{Email: "parent@example.com", Name: "Other", CreatedAt: base})
		assert.ErrorIs(t, err, database.ErrAlreadyExists)

		got, err := db.GetUserByEmail(ctx, "parent@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Parent", got.Name)
		assert.Equal(t, "g-1", got.GoogleID)
		require.NotNil(t, got.Picture)
		assert.Equal(t, picture, *got.Picture)
		assert.True(t, got.IsActive)
		assert.False(t, got.IsAdmin)
		assert.True(t, got.CreatedAt.Equal(base))

		_, err = db.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, database.ErrNotFound)

		got.IsActive = false
		got.IsAdmin = true
		require.NoError(t, db.UpdateUser(ctx, got))
		got, err = db.GetUserByEmail(ctx, "parent@example.com")
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.True(t, got.IsAdmin)

		err = db.UpdateUser(ctx, &models.User{Email: "nobody@example.com"})
		assert.ErrorIs(t, err, database.ErrNotFound)

		require.NoError(t, db.CreateUser(ctx, &models.User{Email: "second@example.com", IsActive: true, CreatedAt: base.Add(time.Minute)}))
		users, err := db.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "parent@example.com", users[0].Email)
		assert.Equal(t, "second@example.com", users[1].Email)
		assert.Nil(t, users[1].Picture)
	})
}

func TestConcurrentCreateUserHasSingleWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db database.Database) {
		ctx := context.Background()
		const workers = 8

		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := range workers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = db.CreateUser(ctx, &models.User{
					Email:     "race@example.com",
					Name:      fmt.Sprintf("caller-%d", i),
					IsActive:  true,
					CreatedAt: base,
				})
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, database.ErrAlreadyExists)
		}
		assert.Equal(t, 1, created)
	})
}

func TestChildren(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db database.Database) {
		ctx := context.Background()
		a := &models.Child{ID: "child_a", Name: "Alice", Age: 8, WeeklyAllowance: 5, CreatedAt: base}
		b := &models.Child{ID: "child_b", Name: "Bob", Age: 10, WeeklyAllowance: 7.5, CreatedAt: base.Add(time.Second)}
		require.NoError(t, db.CreateChild(ctx, a))
		require.NoError(t, db.CreateChild(ctx, b))
		assert.ErrorIs(t, db.CreateChild(ctx, a), database.ErrAlreadyExists)

		children, err := db.ListChildren(ctx)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, "child_a", children[0].ID)
		assert.Equal(t, "child_b", children[1].ID)
		assert.InDelta(t, 7.5, children[1].WeeklyAllowance, 0.0001)

		a.Name = "Alicia"
		a.Age = 9
		a.CurrentBalance = 3
		require.NoError(t, db.UpdateChild(ctx, a))
		got, err := db.GetChild(ctx, "child_a")
		require.NoError(t, err)
		assert.Equal(t, "Alicia", got.Name)
		assert.Equal(t, 9, got.Age)
		assert.InDelta(t, 3, got.CurrentBalance, 0.0001)
		assert.True(t, got.CreatedAt.Equal(base))

		assert.ErrorIs(t, db.UpdateChild(ctx, &models.Child{ID: "missing"}), database.ErrNotFound)

		require.NoError(t, db.DeleteChild(ctx, "child_b"))
		assert.ErrorIs(t, db.DeleteChild(ctx, "child_b"), database.ErrNotFound)
		_, err = db.GetChild(ctx, "child_b")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestApplyTransaction(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db database.Database) {
		ctx := context.Background()
		require.NoError(t, db.CreateChild(ctx, &models.Child{ID: "child_a", Name: "Alice", CreatedAt: base}))
		require.NoError(t, db.CreateChild(ctx, &models.Child{ID: "child_b", Name: "Bob", CreatedAt: base}))

		steps := []struct {
			id      string
			child   string
			amount  float64
			kind    models.TransactionType
			balance float64
		}{
			{"txn_1", "child_a", 10, models.TransactionTypeAllowance, 10},
			{"txn_2", "child_a", 2.5, models.TransactionTypeChore, 12.5},
			{"txn_3", "child_a", 4, models.TransactionTypeSpending, 8.5},
			{"txn_4", "child_a", 1.5, models.TransactionTypeAdjustment, 10},
			{"txn_5", "child_b", 3, models.TransactionTypeAllowance, 3},
		}
		for i, s := range steps {
			child, err := db.ApplyTransaction(ctx, &models.Transaction{
				ID:      s.id,
				ChildID: s.child,
				Amount:  s.amount,
				Type:    s.kind,
				Date:    base.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err, s.id)
			assert.InDelta(t, s.balance, child.CurrentBalance, 0.0001, s.id)
		}

		_, err := db.ApplyTransaction(ctx, &models.Transaction{ID: "txn_x", ChildID: "missing", Amount: 1, Type: models.TransactionTypeAllowance, Date: base})
		assert.ErrorIs(t, err, database.ErrNotFound)

		got, err := db.GetChild(ctx, "child_a")
		require.NoError(t, err)
		assert.InDelta(t, 10, got.CurrentBalance, 0.0001)

		all, err := db.ListTransactions(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "txn_5", all[0].ID, "newest first")
		assert.Equal(t, "txn_1", all[4].ID)

		childA := "child_a"
		forA, err := db.ListTransactions(ctx, &database.TransactionFilter{ChildID: &childA})
		require.NoError(t, err)
		require.Len(t, forA, 4)
		assert.Equal(t, models.TransactionTypeAdjustment, forA[0].Type)

		limited, err := db.ListTransactions(ctx, &database.TransactionFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})
}

func TestChores(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db database.Database) {
		ctx := context.Background()
		require.NoError(t, db.CreateChore(ctx, &models.Chore{ID: "chore_1", Name: "Dishes", Value: 2, AssignedTo: "child_a", CreatedAt: base}))
		require.NoError(t, db.CreateChore(ctx, &models.Chore{ID: "chore_2", Name: "Trash", Value: 1, CreatedAt: base.Add(time.Second)}))

		done := base.Add(time.Hour)
		chore, err := db.MarkChoreCompleted(ctx, "chore_1", done)
		require.NoError(t, err)
		assert.True(t, chore.Completed)
		require.NotNil(t, chore.CompletedDate)
		assert.True(t, chore.CompletedDate.Equal(done))

		_, err = db.MarkChoreCompleted(ctx, "chore_1", done)
		assert.ErrorIs(t, err, database.ErrAlreadyCompleted)
		_, err = db.MarkChoreCompleted(ctx, "missing", done)
		assert.ErrorIs(t, err, database.ErrNotFound)

		got, err := db.GetChore(ctx, "chore_1")
		require.NoError(t, err)
		assert.True(t, got.Completed)

		all, err := db.ListChores(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "chore_1", all[0].ID)

		open := false
		pending, err := db.ListChores(ctx, &database.ChoreFilter{Completed: &open})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "chore_2", pending[0].ID)
		assert.Nil(t, pending[0].CompletedDate)

		assignee := "child_a"
		assigned, err := db.ListChores(ctx, &database.ChoreFilter{AssignedTo: &assignee})
		require.NoError(t, err)
		require.Len(t, assigned, 1)
		assert.Equal(t, "chore_1", assigned[0].ID)
	})
}

func TestExpenditures(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db database.Database) {
		ctx := context.Background()
		require.NoError(t, db.CreateExpenditure(ctx, &models.Expenditure{ID: "exp_1", ChildName: "Alice", Amount: 3.25, Date: "2025-03-01", Description: "Candy", CreatedAt: base}))
		require.NoError(t, db.CreateExpenditure(ctx, &models.Expenditure{ID: "exp_2", ChildName: "Bob", Amount: 10, Date: "2025-03-02", Description: "Book", CreatedAt: base.Add(time.Minute)}))
		require.NoError(t, db.CreateExpenditure(ctx, &models.Expenditure{ID: "exp_3", ChildName: "Alice", Amount: 1, Date: "2025-03-03", Description: "Sticker", CreatedAt: base.Add(2 * time.Minute)}))

		all, err := db.ListExpenditures(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "exp_3", all[0].ID)

		alice := "Alice"
		forAlice, err := db.ListExpenditures(ctx, &database.ExpenditureFilter{ChildName: &alice})
		require.NoError(t, err)
		require.Len(t, forAlice, 2)
		assert.Equal(t, "Sticker", forAlice[0].Description)
		assert.Equal(t, "2025-03-01", forAlice[1].Date)
	})
}

func TestPing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db database.Database) {
		assert.NoError(t, db.Ping(context.Background()))
	})
}

func TestMemoryReturnsCopies(t *testing.T) {
	db := NewMemory()
	ctx := context.Background()
	require.NoError(t, db.CreateChild(ctx, &models.Child{ID: "child_a", Name: "Alice", CreatedAt: base}))

	got, err := db.GetChild(ctx, "child_a")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := db.GetChild(ctx, "child_a")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
}

func TestMemoryHonoursCanceledContext(t *testing.T) {
	db := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.ListChildren(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
