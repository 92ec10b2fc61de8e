package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

// SQLite is an implementation of the Database interface on a single SQLite
// file. Use ":memory:" for a throwaway database.
type SQLite struct {
	db *sql.DB
}

var _ database.Database = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path and applies migrations.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One writer at a time; an in-memory database also only exists on its
	// own connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return database.ErrAlreadyExists
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %s", database.ErrInvalidInput, msg)
	}
	return fmt.Errorf("%w: %w", database.ErrDatabase, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*models.User, error) {
	var u models.User
	var picture sql.NullString
	var created int64
	if err := row.Scan(&u.Email, &u.Name, &u.GoogleID, &picture, &u.IsActive, &u.IsAdmin, &created); err != nil {
		return nil, err
	}
	if picture.Valid {
		u.Picture = &picture.String
	}
	u.CreatedAt = fromUnix(created)
	return &u, nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return u, nil
}

func (s *SQLite) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.Email == "" {
		return database.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.Email, user.Name, user.GoogleID, user.Picture, user.IsActive, user.IsAdmin, toUnix(user.CreatedAt),
	)
	return mapSQLiteError(err)
}

func (s *SQLite) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, google_id = ?, picture = ?, is_active = ?, is_admin = ? WHERE email = ?",
		user.Name, user.GoogleID, user.Picture, user.IsActive, user.IsAdmin, user.Email,
	)
	return checkAffected(res, err)
}

func (s *SQLite) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, email")
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, u)
	}
	return out, mapSQLiteError(rows.Err())
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return mapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapSQLiteError(err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func scanSQLiteChild(row rowScanner) (*models.Child, error) {
	var c models.Child
	var created int64
	if err := row.Scan(&c.ID, &c.Name, &c.Age, &c.WeeklyAllowance, &c.CurrentBalance, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnix(created)
	return &c, nil
}

func (s *SQLite) CreateChild(ctx context.Context, child *models.Child) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO children ("+childColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		child.ID, child.Name, child.Age, child.WeeklyAllowance, child.CurrentBalance, toUnix(child.CreatedAt),
	)
	return mapSQLiteError(err)
}

func (s *SQLite) GetChild(ctx context.Context, id string) (*models.Child, error) {
	c, err := scanSQLiteChild(s.db.QueryRowContext(ctx, "SELECT "+childColumns+" FROM children WHERE id = ?", id))
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return c, nil
}

func (s *SQLite) ListChildren(ctx context.Context) ([]*models.Child, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+childColumns+" FROM children ORDER BY created_at, id")
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Child
	for rows.Next() {
		c, err := scanSQLiteChild(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, c)
	}
	return out, mapSQLiteError(rows.Err())
}

func (s *SQLite) UpdateChild(ctx context.Context, child *models.Child) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE children SET name = ?, age = ?, weekly_allowance = ?, current_balance = ? WHERE id = ?",
		child.Name, child.Age, child.WeeklyAllowance, child.CurrentBalance, child.ID,
	)
	return checkAffected(res, err)
}

func (s *SQLite) DeleteChild(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM children WHERE id = ?", id)
	return checkAffected(res, err)
}

func (s *SQLite) ApplyTransaction(ctx context.Context, txn *models.Transaction) (*models.Child, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := scanSQLiteChild(tx.QueryRowContext(ctx, "SELECT "+childColumns+" FROM children WHERE id = ?", txn.ChildID))
	if err != nil {
		return nil, fmt.Errorf("child %s: %w", txn.ChildID, mapSQLiteError(err))
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (id, child_id, amount, description, transaction_type, date) VALUES (?, ?, ?, ?, ?, ?)",
		txn.ID, txn.ChildID, txn.Amount, txn.Description, string(txn.Type), toUnix(txn.Date),
	); err != nil {
		return nil, mapSQLiteError(err)
	}

	c.CurrentBalance += txn.Type.BalanceDelta(txn.Amount)
	if _, err := tx.ExecContext(ctx, "UPDATE children SET current_balance = ? WHERE id = ?", c.CurrentBalance, c.ID); err != nil {
		return nil, mapSQLiteError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return c, nil
}

func (s *SQLite) ListTransactions(ctx context.Context, filter *database.TransactionFilter) ([]*models.Transaction, error) {
	query := "SELECT id, child_id, amount, description, transaction_type, date FROM transactions"
	var args []any
	if filter != nil && filter.ChildID != nil {
		query += " WHERE child_id = ?"
		args = append(args, *filter.ChildID)
	}
	query += " ORDER BY date DESC, id DESC"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var txnType string
		var date int64
		if err := rows.Scan(&t.ID, &t.ChildID, &t.Amount, &t.Description, &txnType, &date); err != nil {
			return nil, mapSQLiteError(err)
		}
		t.Type = models.TransactionType(txnType)
		t.Date = fromUnix(date)
		out = append(out, &t)
	}
	return out, mapSQLiteError(rows.Err())
}

func scanSQLiteChore(row rowScanner) (*models.Chore, error) {
	var c models.Chore
	var completedDate sql.NullInt64
	var created int64
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Value, &c.AssignedTo, &c.Completed, &completedDate, &created); err != nil {
		return nil, err
	}
	if completedDate.Valid {
		d := fromUnix(completedDate.Int64)
		c.CompletedDate = &d
	}
	c.CreatedAt = fromUnix(created)
	return &c, nil
}

func (s *SQLite) CreateChore(ctx context.Context, chore *models.Chore) error {
	var completed any
	if chore.CompletedDate != nil {
		completed = toUnix(*chore.CompletedDate)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chores ("+choreColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		chore.ID, chore.Name, chore.Description, chore.Value, chore.AssignedTo, chore.Completed, completed, toUnix(chore.CreatedAt),
	)
	return mapSQLiteError(err)
}

func (s *SQLite) GetChore(ctx context.Context, id string) (*models.Chore, error) {
	c, err := scanSQLiteChore(s.db.QueryRowContext(ctx, "SELECT "+choreColumns+" FROM chores WHERE id = ?", id))
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return c, nil
}

func (s *SQLite) ListChores(ctx context.Context, filter *database.ChoreFilter) ([]*models.Chore, error) {
	var whereConditions []string
	var args []any
	if filter != nil {
		if filter.AssignedTo != nil {
			whereConditions = append(whereConditions, "assigned_to = ?")
			args = append(args, *filter.AssignedTo)
		}
		if filter.Completed != nil {
			whereConditions = append(whereConditions, "completed = ?")
			args = append(args, *filter.Completed)
		}
	}

	query := "SELECT " + choreColumns + " FROM chores"
	if len(whereConditions) > 0 {
		query += " WHERE " + strings.Join(whereConditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Chore
	for rows.Next() {
		c, err := scanSQLiteChore(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		out = append(out, c)
	}
	return out, mapSQLiteError(rows.Err())
}

func (s *SQLite) MarkChoreCompleted(ctx context.Context, id string, at time.Time) (*models.Chore, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := scanSQLiteChore(tx.QueryRowContext(ctx, "SELECT "+choreColumns+" FROM chores WHERE id = ?", id))
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	if c.Completed {
		return nil, database.ErrAlreadyCompleted
	}
	if _, err := tx.ExecContext(ctx, "UPDATE chores SET completed = 1, completed_date = ? WHERE id = ?", toUnix(at), id); err != nil {
		return nil, mapSQLiteError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, mapSQLiteError(err)
	}

	c.Completed = true
	completed := fromUnix(toUnix(at))
	c.CompletedDate = &completed
	return c, nil
}

func (s *SQLite) CreateExpenditure(ctx context.Context, exp *models.Expenditure) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO expenditures (id, child_name, amount, date, description, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		exp.ID, exp.ChildName, exp.Amount, exp.Date, exp.Description, toUnix(exp.CreatedAt),
	)
	return mapSQLiteError(err)
}

func (s *SQLite) ListExpenditures(ctx context.Context, filter *database.ExpenditureFilter) ([]*models.Expenditure, error) {
	query := "SELECT id, child_name, amount, date, description, created_at FROM expenditures"
	var args []any
	if filter != nil && filter.ChildName != nil {
		query += " WHERE child_name = ?"
		args = append(args, *filter.ChildName)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Expenditure
	for rows.Next() {
		var e models.Expenditure
		var created int64
		if err := rows.Scan(&e.ID, &e.ChildName, &e.Amount, &e.Date, &e.Description, &created); err != nil {
			return nil, mapSQLiteError(err)
		}
		e.CreatedAt = fromUnix(created)
		out = append(out, &e)
	}
	return out, mapSQLiteError(rows.Err())
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
