package service

import (
	"context"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

// UserUpdate carries the account flags an admin may change. Nil fields are left as they are.
type UserUpdate struct {
	IsActive *bool
	IsAdmin  *bool
}

// ExpenditureMirror receives a copy of every recorded expenditure, e.g. a spreadsheet.
type ExpenditureMirror interface {
	AppendExpenditure(ctx context.Context, exp *models.Expenditure) error
}

// ChoreCompletion is the outcome of completing a chore.
type ChoreCompletion struct {
	Chore       *models.Chore
	Transaction *models.Transaction // nil when the chore is not assigned
	Child       *models.Child       // the assigned child after payment
}

// TrackerService defines the interface for allowance tracker operations
type TrackerService interface {
	// GetOrCreateUser returns the stored user for identity.Email, creating an
	// active non-admin user on first sight. An existing user is never modified.
	GetOrCreateUser(ctx context.Context, identity auth.Identity) (*models.User, error)
	// GetUser retrieves a user by email
	GetUser(ctx context.Context, email string) (*models.User, error)
	// ListUsers returns every known user
	ListUsers(ctx context.Context) ([]*models.User, error)
	// UpdateUser changes account flags
	UpdateUser(ctx context.Context, email string, update UserUpdate) (*models.User, error)

	ListChildren(ctx context.Context) ([]*models.Child, error)
	GetChild(ctx context.Context, id string) (*models.Child, error)
	// CreateChild assigns a fresh id and creation time
	CreateChild(ctx context.Context, child *models.Child) (*models.Child, error)
	// UpdateChild replaces a child's editable fields, keeping id and creation time
	UpdateChild(ctx context.Context, id string, child *models.Child) (*models.Child, error)
	DeleteChild(ctx context.Context, id string) (*models.Child, error)

	ListTransactions(ctx context.Context, filter *database.TransactionFilter) ([]*models.Transaction, error)
	// CreateTransaction records a transaction and applies it to the child's balance
	CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)

	ListChores(ctx context.Context, filter *database.ChoreFilter) ([]*models.Chore, error)
	CreateChore(ctx context.Context, chore *models.Chore) (*models.Chore, error)
	// CompleteChore marks a chore done and pays its value to the assigned child
	CompleteChore(ctx context.Context, id string) (*ChoreCompletion, error)

	ListExpenditures(ctx context.Context, childName string) ([]*models.Expenditure, error)
	CreateExpenditure(ctx context.Context, exp *models.Expenditure) (*models.Expenditure, error)
	// TotalSpent sums expenditures, for one child when childName is set
	TotalSpent(ctx context.Context, childName string) (float64, error)

	Summary(ctx context.Context) (*models.Summary, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Ping(ctx context.Context) error
}
