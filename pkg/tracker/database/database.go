package database

import (
	"context"
	"time"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

// Common database errors
var (
	ErrNotFound         = errs.New(errs.KindNotFound, "record not found")
	ErrAlreadyExists    = errs.New(errs.KindConflict, "record already exists")
	ErrInvalidInput     = errs.New(errs.KindInvalidInput, "invalid input")
	ErrDatabase         = errs.New(errs.KindUpstream, "database error")
	ErrAlreadyCompleted = errs.New(errs.KindInvalidInput, "chore already completed")
)

// TransactionFilter defines filtering options for transaction queries
type TransactionFilter struct {
	ChildID *string // only transactions of this child
	Limit   int     // 0 means no limit; results are newest first
}

// ChoreFilter defines filtering options for chore queries
type ChoreFilter struct {
	AssignedTo *string // child id
	Completed  *bool
}

// ExpenditureFilter defines filtering options for expenditure queries
type ExpenditureFilter struct {
	ChildName *string
}

// Database defines the interface for persisting tracker records.
// Implementations must be safe for concurrent use.
type Database interface {
	// GetUserByEmail retrieves a user by its (normalized) email
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser inserts a user if no user with the same email exists, ErrAlreadyExists otherwise
	CreateUser(ctx context.Context, user *models.User) error
	// UpdateUser replaces the flags and profile of an existing user
	UpdateUser(ctx context.Context, user *models.User) error
	// ListUsers returns all users ordered by creation time
	ListUsers(ctx context.Context) ([]*models.User, error)

	CreateChild(ctx context.Context, child *models.Child) error
	GetChild(ctx context.Context, id string) (*models.Child, error)
	// ListChildren returns all children ordered by creation time
	ListChildren(ctx context.Context) ([]*models.Child, error)
	UpdateChild(ctx context.Context, child *models.Child) error
	DeleteChild(ctx context.Context, id string) error

	// ApplyTransaction stores the transaction and applies its balance delta to
	// the child in one atomic step, returning the updated child.
	ApplyTransaction(ctx context.Context, txn *models.Transaction) (*models.Child, error)
	// ListTransactions returns transactions newest first
	ListTransactions(ctx context.Context, filter *TransactionFilter) ([]*models.Transaction, error)

	CreateChore(ctx context.Context, chore *models.Chore) error
	GetChore(ctx context.Context, id string) (*models.Chore, error)
	// ListChores returns chores ordered by creation time
	ListChores(ctx context.Context, filter *ChoreFilter) ([]*models.Chore, error)
	// MarkChoreCompleted flips an open chore to completed, ErrAlreadyCompleted if it was done
	MarkChoreCompleted(ctx context.Context, id string, at time.Time) (*models.Chore, error)

	CreateExpenditure(ctx context.Context, exp *models.Expenditure) error
	// ListExpenditures returns expenditures newest first
	ListExpenditures(ctx context.Context, filter *ExpenditureFilter) ([]*models.Expenditure, error)

	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
	// Close closes the database connection
	Close() error
}
