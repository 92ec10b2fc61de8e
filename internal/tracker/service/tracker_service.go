package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

const recentTransactionsLimit = 10

// trackerServiceImpl implements TrackerService on top of a database.Database
type trackerServiceImpl struct {
	db     database.Database
	mirror ExpenditureMirror
	now    func() time.Time
}

// Option configures the tracker service.
type Option func(*trackerServiceImpl)

// WithExpenditureMirror copies new expenditures to m.
func WithExpenditureMirror(m ExpenditureMirror) Option {
	return func(s *trackerServiceImpl) {
		s.mirror = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *trackerServiceImpl) {
		s.now = now
	}
}

// NewTrackerService creates a new tracker service with the provided database
func NewTrackerService(db database.Database, opts ...Option) TrackerService {
	s := &trackerServiceImpl{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision every backend can store.
func (s *trackerServiceImpl) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func invalid(msg string) error {
	return errs.New(errs.KindInvalidInput, msg)
}

func notFound(what string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return errs.Wrap(errs.KindNotFound, what+" not found", err)
	}
	return err
}

// Users

func (s *trackerServiceImpl) GetOrCreateUser(ctx context.Context, identity auth.Identity) (*models.User, error) {
	email := models.NormalizeEmail(identity.Email)
	if email == "" {
		return nil, invalid("email is required")
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		Email:     email,
		Name:      identity.Name,
		GoogleID:  identity.Subject,
		IsActive:  true,
		IsAdmin:   false,
		CreatedAt: s.timestamp(),
	}
	if identity.Picture != "" {
		picture := identity.Picture
		user.Picture = &picture
	}

	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			// Lost a race with a concurrent login; the stored record wins.
			return s.db.GetUserByEmail(ctx, email)
		}
		return nil, err
	}
	slog.InfoContext(ctx, "created user", logging.UserHash(email))
	return user, nil
}

func (s *trackerServiceImpl) GetUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.db.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

func (s *trackerServiceImpl) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.db.ListUsers(ctx)
}

func (s *trackerServiceImpl) UpdateUser(ctx context.Context, email string, update UserUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.IsAdmin != nil {
		user.IsAdmin = *update.IsAdmin
	}
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, notFound("user", err)
	}
	slog.InfoContext(ctx, "updated user", logging.UserHash(user.Email),
		"is_active", user.IsActive, "is_admin", user.IsAdmin)
	return user, nil
}

// Children

func validateChild(child *models.Child) error {
	if child == nil {
		return invalid("child is required")
	}
	child.Name = strings.TrimSpace(child.Name)
	if child.Name == "" {
		return invalid("name is required")
	}
	if child.Age < 0 {
		return invalid("age must not be negative")
	}
	if child.WeeklyAllowance < 0 {
		return invalid("weekly_allowance must not be negative")
	}
	return nil
}

func (s *trackerServiceImpl) ListChildren(ctx context.Context) ([]*models.Child, error) {
	return s.db.ListChildren(ctx)
}

func (s *trackerServiceImpl) GetChild(ctx context.Context, id string) (*models.Child, error) {
	child, err := s.db.GetChild(ctx, id)
	if err != nil {
		return nil, notFound("child", err)
	}
	return child, nil
}

func (s *trackerServiceImpl) CreateChild(ctx context.Context, child *models.Child) (*models.Child, error) {
	if err := validateChild(child); err != nil {
		return nil, err
	}
	created := *child
	created.ID = newID("child")
	created.CreatedAt = s.timestamp()

	if err := s.db.CreateChild(ctx, &created); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "created child", logging.ChildID(created.ID))
	return &created, nil
}

func (s *trackerServiceImpl) UpdateChild(ctx context.Context, id string, child *models.Child) (*models.Child, error) {
	if err := validateChild(child); err != nil {
		return nil, err
	}
	existing, err := s.GetChild(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *child
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := s.db.UpdateChild(ctx, &updated); err != nil {
		return nil, notFound("child", err)
	}
	slog.InfoContext(ctx, "updated child", logging.ChildID(id))
	return &updated, nil
}

func (s *trackerServiceImpl) DeleteChild(ctx context.Context, id string) (*models.Child, error) {
	child, err := s.GetChild(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteChild(ctx, id); err != nil {
		return nil, notFound("child", err)
	}
	slog.InfoContext(ctx, "deleted child", logging.ChildID(id))
	return child, nil
}

// Transactions

func validateTransaction(txn *models.Transaction) error {
	if txn == nil {
		return invalid("transaction is required")
	}
	if strings.TrimSpace(txn.ChildID) == "" {
		return invalid("child_id is required")
	}
	if _, err := models.ParseTransactionType(string(txn.Type)); err != nil {
		return errs.Wrap(errs.KindInvalidInput, "transaction_type must be one of allowance, chore, spending, adjustment", err)
	}
	if txn.Type == models.TransactionTypeAdjustment {
		if txn.Amount == 0 {
			return invalid("amount must not be zero")
		}
	} else if txn.Amount <= 0 {
		return invalid("amount must be positive")
	}
	return nil
}

func (s *trackerServiceImpl) ListTransactions(ctx context.Context, filter *database.TransactionFilter) ([]*models.Transaction, error) {
	return s.db.ListTransactions(ctx, filter)
}

func (s *trackerServiceImpl) CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if err := validateTransaction(txn); err != nil {
		return nil, err
	}
	created := *txn
	created.ID = newID("txn")
	created.Date = s.timestamp()

	if _, err := s.db.ApplyTransaction(ctx, &created); err != nil {
		return nil, notFound("child", err)
	}
	slog.InfoContext(ctx, "recorded transaction", logging.ChildID(created.ChildID),
		"transaction_type", created.Type, "amount", created.Amount)
	return &created, nil
}

// Chores

func (s *trackerServiceImpl) ListChores(ctx context.Context, filter *database.ChoreFilter) ([]*models.Chore, error) {
	return s.db.ListChores(ctx, filter)
}

func (s *trackerServiceImpl) CreateChore(ctx context.Context, chore *models.Chore) (*models.Chore, error) {
	if chore == nil {
		return nil, invalid("chore is required")
	}
	created := *chore
	created.Name = strings.TrimSpace(created.Name)
	if created.Name == "" {
		return nil, invalid("name is required")
	}
	if created.Value < 0 {
		return nil, invalid("value must not be negative")
	}
	if created.AssignedTo != "" {
		if _, err := s.GetChild(ctx, created.AssignedTo); err != nil {
			return nil, err
		}
	}
	created.ID = newID("chore")
	created.Completed = false
	created.CompletedDate = nil
	created.CreatedAt = s.timestamp()

	if err := s.db.CreateChore(ctx, &created); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "created chore", "chore_id", created.ID)
	return &created, nil
}

func (s *trackerServiceImpl) CompleteChore(ctx context.Context, id string) (*ChoreCompletion, error) {
	chore, err := s.db.GetChore(ctx, id)
	if err != nil {
		return nil, notFound("chore", err)
	}
	if chore.Completed {
		return nil, database.ErrAlreadyCompleted
	}
	if chore.AssignedTo != "" {
		if _, err := s.GetChild(ctx, chore.AssignedTo); err != nil {
			return nil, err
		}
	}

	completed, err := s.db.MarkChoreCompleted(ctx, id, s.timestamp())
	if err != nil {
		return nil, notFound("chore", err)
	}
	result := &ChoreCompletion{Chore: completed}

	if completed.AssignedTo != "" && completed.Value > 0 {
		txn := &models.Transaction{
			ID:          newID("txn"),
			ChildID:     completed.AssignedTo,
			Amount:      completed.Value,
			Description: "Completed chore: " + completed.Name,
			Type:        models.TransactionTypeChore,
			Date:        s.timestamp(),
		}
		child, err := s.db.ApplyTransaction(ctx, txn)
		if err != nil {
			return nil, notFound("child", err)
		}
		result.Transaction = txn
		result.Child = child
	}
	slog.InfoContext(ctx, "completed chore", "chore_id", id)
	return result, nil
}

// Expenditures

func validateExpenditure(exp *models.Expenditure) error {
	if exp == nil {
		return invalid("expenditure is required")
	}
	if exp.Amount <= 0 {
		return invalid("amount must be a positive number")
	}
	if strings.TrimSpace(exp.Date) == "" {
		return invalid("date must be a non-empty string")
	}
	if strings.TrimSpace(exp.Description) == "" {
		return invalid("description must be a non-empty string")
	}
	return nil
}

func (s *trackerServiceImpl) ListExpenditures(ctx context.Context, childName string) ([]*models.Expenditure, error) {
	filter := &database.ExpenditureFilter{}
	if childName = strings.TrimSpace(childName); childName != "" {
		filter.ChildName = &childName
	}
	return s.db.ListExpenditures(ctx, filter)
}

func (s *trackerServiceImpl) CreateExpenditure(ctx context.Context, exp *models.Expenditure) (*models.Expenditure, error) {
	if err := validateExpenditure(exp); err != nil {
		return nil, err
	}
	created := *exp
	created.ID = newID("exp")
	created.ChildName = strings.TrimSpace(created.ChildName)
	created.CreatedAt = s.timestamp()

	if err := s.db.CreateExpenditure(ctx, &created); err != nil {
		return nil, err
	}
	if s.mirror != nil {
		if err := s.mirror.AppendExpenditure(ctx, &created); err != nil {
			slog.WarnContext(ctx, "failed to mirror expenditure", "expenditure_id", created.ID, logging.Err(err))
		}
	}
	return &created, nil
}

func (s *trackerServiceImpl) TotalSpent(ctx context.Context, childName string) (float64, error) {
	exps, err := s.ListExpenditures(ctx, childName)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, e := range exps {
		total += e.Amount
	}
	return total, nil
}

func (s *trackerServiceImpl) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
