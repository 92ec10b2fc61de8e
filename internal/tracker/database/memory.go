package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

// Memory is an implementation of the Database interface held in process
// memory. Records are copied on the way in and out so callers never share
// state with the store.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	children     map[string]*models.Child
	transactions []*models.Transaction
	chores       map[string]*models.Chore
	expenditures []*models.Expenditure
}

var _ database.Database = (*Memory)(nil)

// NewMemory creates an empty in-memory database
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]*models.User),
		children: make(map[string]*models.Child),
		chores:   make(map[string]*models.Chore),
	}
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if user == nil || user.Email == "" {
		return database.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Email]; ok {
		return database.ErrAlreadyExists
	}
	m.users[user.Email] = copyUser(user)
	return nil
}

func (m *Memory) UpdateUser(ctx context.Context, user *models.User) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Email]; !ok {
		return database.ErrNotFound
	}
	m.users[user.Email] = copyUser(user)
	return nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]*models.User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, copyUser(u))
	}
	sortUsers(out)
	return out, nil
}

func (m *Memory) CreateChild(ctx context.Context, child *models.Child) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.children[child.ID]; ok {
		return database.ErrAlreadyExists
	}
	c := *child
	m.children[child.ID] = &c
	return nil
}

func (m *Memory) GetChild(ctx context.Context, id string) (*models.Child, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.children[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *Memory) ListChildren(ctx context.Context) ([]*models.Child, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Child, 0, len(m.children))
	for _, c := range m.children {
		cc := *c
		out = append(out, &cc)
	}
	sortChildren(out)
	return out, nil
}

func (m *Memory) UpdateChild(ctx context.Context, child *models.Child) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.children[child.ID]
	if !ok {
		return database.ErrNotFound
	}
	c := *child
	c.CreatedAt = existing.CreatedAt
	m.children[child.ID] = &c
	return nil
}

func (m *Memory) DeleteChild(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.children[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.children, id)
	return nil
}

func (m *Memory) ApplyTransaction(ctx context.Context, txn *models.Transaction) (*models.Child, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.children[txn.ChildID]
	if !ok {
		return nil, fmt.Errorf("child %s: %w", txn.ChildID, database.ErrNotFound)
	}
	c.CurrentBalance += txn.Type.BalanceDelta(txn.Amount)
	t := *txn
	m.transactions = append(m.transactions, &t)

	out := *c
	return &out, nil
}

func (m *Memory) ListTransactions(ctx context.Context, filter *database.TransactionFilter) ([]*models.Transaction, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Transaction, 0, len(m.transactions))
	for _, t := range m.transactions {
		if filter != nil && filter.ChildID != nil && t.ChildID != *filter.ChildID {
			continue
		}
		tt := *t
		out = append(out, &tt)
	}
	sortTransactions(out)
	if filter != nil && filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) CreateChore(ctx context.Context, chore *models.Chore) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.chores[chore.ID]; ok {
		return database.ErrAlreadyExists
	}
	m.chores[chore.ID] = copyChore(chore)
	return nil
}

func (m *Memory) GetChore(ctx context.Context, id string) (*models.Chore, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chores[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copyChore(c), nil
}

func (m *Memory) ListChores(ctx context.Context, filter *database.ChoreFilter) ([]*models.Chore, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Chore, 0, len(m.chores))
	for _, c := range m.chores {
		if !choreMatches(c, filter) {
			continue
		}
		out = append(out, copyChore(c))
	}
	sortChores(out)
	return out, nil
}

func (m *Memory) MarkChoreCompleted(ctx context.Context, id string, at time.Time) (*models.Chore, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chores[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if c.Completed {
		return nil, database.ErrAlreadyCompleted
	}
	c.Completed = true
	c.CompletedDate = &at
	return copyChore(c), nil
}

func (m *Memory) CreateExpenditure(ctx context.Context, exp *models.Expenditure) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := *exp
	m.expenditures = append(m.expenditures, &e)
	return nil
}

func (m *Memory) ListExpenditures(ctx context.Context, filter *database.ExpenditureFilter) ([]*models.Expenditure, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Expenditure, 0, len(m.expenditures))
	for _, e := range m.expenditures {
		if filter != nil && filter.ChildName != nil && e.ChildName != *filter.ChildName {
			continue
		}
		ee := *e
		out = append(out, &ee)
	}
	sortExpenditures(out)
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close() error {
	return nil
}

func copyUser(u *models.User) *models.User {
	out := *u
	if u.Picture != nil {
		p := *u.Picture
		out.Picture = &p
	}
	return &out
}

func copyChore(c *models.Chore) *models.Chore {
	out := *c
	if c.CompletedDate != nil {
		d := *c.CompletedDate
		out.CompletedDate = &d
	}
	return &out
}

func choreMatches(c *models.Chore, filter *database.ChoreFilter) bool {
	if filter == nil {
		return true
	}
	if filter.AssignedTo != nil && c.AssignedTo != *filter.AssignedTo {
		return false
	}
	if filter.Completed != nil && c.Completed != *filter.Completed {
		return false
	}
	return true
}
