package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

// PostgreSQL is an implementation of the Database interface using PostgreSQL
type PostgreSQL struct {
	pool *pgxpool.Pool
}

var _ database.Database = (*PostgreSQL)(nil)

// Executor is an interface for executing queries (satisfied by both pgx.Tx and pgxpool.Pool)
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// getExecutor returns the appropriate executor (transaction or pool)
func (db *PostgreSQL) getExecutor(tx pgx.Tx) Executor {
	if tx != nil {
		return tx
	}
	return db.pool
}

// NewPostgreSQL creates a new instance of the PostgreSQL database
func NewPostgreSQL(ctx context.Context, connectionURI string) (*PostgreSQL, error) {
	config, err := pgxpool.ParseConfig(connectionURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnIdleTime = 30 * time.Minute
	config.MaxConnLifetime = 2 * time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// Run migrations using a single connection from the pool
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection for migrations: %w", err)
	}
	defer conn.Release()

	if err := migratePostgres(ctx, conn.Conn()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &PostgreSQL{pool: pool}, nil
}

// InTransaction runs fn inside a transaction, committing on success.
func (db *PostgreSQL) InTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	//nolint:contextcheck // Intentionally using separate context for rollback to ensure cleanup even if request is cancelled
	defer func() {
		rollbackCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if rbErr := tx.Rollback(rollbackCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("failed to rollback transaction", "error", rbErr)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// mapPgError converts driver errors into store sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return database.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return database.ErrAlreadyExists
		case "23514", "22P02":
			return fmt.Errorf("%w: %s", database.ErrInvalidInput, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %w", database.ErrDatabase, err)
}

const userColumns = "email, name, google_id, picture, is_active, is_admin, created_at"

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.Email, &u.Name, &u.GoogleID, &u.Picture, &u.IsActive, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (db *PostgreSQL) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		return nil, mapPgError(err)
	}
	return u, nil
}

func (db *PostgreSQL) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.Email == "" {
		return database.ErrInvalidInput
	}
	_, err := db.pool.Exec(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		user.Email, user.Name, user.GoogleID, user.Picture, user.IsActive, user.IsAdmin, user.CreatedAt,
	)
	return mapPgError(err)
}

func (db *PostgreSQL) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := db.pool.Exec(ctx,
		"UPDATE users SET name = $2, google_id = $3, picture = $4, is_active = $5, is_admin = $6 WHERE email = $1",
		user.Email, user.Name, user.GoogleID, user.Picture, user.IsActive, user.IsAdmin,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (db *PostgreSQL) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, email")
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		out = append(out, u)
	}
	return out, mapPgError(rows.Err())
}

const childColumns = "id, name, age, weekly_allowance, current_balance, created_at"

func scanChild(row pgx.Row) (*models.Child, error) {
	var c models.Child
	if err := row.Scan(&c.ID, &c.Name, &c.Age, &c.WeeklyAllowance, &c.CurrentBalance, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (db *PostgreSQL) CreateChild(ctx context.Context, child *models.Child) error {
	_, err := db.pool.Exec(ctx,
		"INSERT INTO children ("+childColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		child.ID, child.Name, child.Age, child.WeeklyAllowance, child.CurrentBalance, child.CreatedAt,
	)
	return mapPgError(err)
}

func (db *PostgreSQL) getChild(ctx context.Context, tx pgx.Tx, id string, forUpdate bool) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	c, err := scanChild(db.getExecutor(tx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return c, nil
}

func (db *PostgreSQL) GetChild(ctx context.Context, id string) (*models.Child, error) {
	return db.getChild(ctx, nil, id, false)
}

func (db *PostgreSQL) ListChildren(ctx context.Context) ([]*models.Child, error) {
	rows, err := db.pool.Query(ctx, "SELECT "+childColumns+" FROM children ORDER BY created_at, id")
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []*models.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		out = append(out, c)
	}
	return out, mapPgError(rows.Err())
}

func (db *PostgreSQL) UpdateChild(ctx context.Context, child *models.Child) error {
	tag, err := db.pool.Exec(ctx,
		"UPDATE children SET name = $2, age = $3, weekly_allowance = $4, current_balance = $5 WHERE id = $1",
		child.ID, child.Name, child.Age, child.WeeklyAllowance, child.CurrentBalance,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (db *PostgreSQL) DeleteChild(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, "DELETE FROM children WHERE id = $1", id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (db *PostgreSQL) ApplyTransaction(ctx context.Context, txn *models.Transaction) (*models.Child, error) {
	var child *models.Child
	err := db.InTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		c, err := db.getChild(ctx, tx, txn.ChildID, true)
		if err != nil {
			return fmt.Errorf("child %s: %w", txn.ChildID, err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO transactions (id, child_id, amount, description, transaction_type, date) VALUES ($1, $2, $3, $4, $5, $6)",
			txn.ID, txn.ChildID, txn.Amount, txn.Description, string(txn.Type), txn.Date,
		); err != nil {
			return mapPgError(err)
		}

		c.CurrentBalance += txn.Type.BalanceDelta(txn.Amount)
		if _, err := tx.Exec(ctx, "UPDATE children SET current_balance = $2 WHERE id = $1", c.ID, c.CurrentBalance); err != nil {
			return mapPgError(err)
		}
		child = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}

func (db *PostgreSQL) ListTransactions(ctx context.Context, filter *database.TransactionFilter) ([]*models.Transaction, error) {
	query := "SELECT id, child_id, amount, description, transaction_type, date FROM transactions"
	var args []any
	if filter != nil && filter.ChildID != nil {
		query += " WHERE child_id = $1"
		args = append(args, *filter.ChildID)
	}
	query += " ORDER BY date DESC, id DESC"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var txnType string
		if err := rows.Scan(&t.ID, &t.ChildID, &t.Amount, &t.Description, &txnType, &t.Date); err != nil {
			return nil, mapPgError(err)
		}
		t.Type = models.TransactionType(txnType)
		t.Date = t.Date.UTC()
		out = append(out, &t)
	}
	return out, mapPgError(rows.Err())
}

const choreColumns = "id, name, description, value, assigned_to, completed, completed_date, created_at"

func scanChore(row pgx.Row) (*models.Chore, error) {
	var c models.Chore
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Value, &c.AssignedTo, &c.Completed, &c.CompletedDate, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	if c.CompletedDate != nil {
		d := c.CompletedDate.UTC()
		c.CompletedDate = &d
	}
	return &c, nil
}

func (db *PostgreSQL) CreateChore(ctx context.Context, chore *models.Chore) error {
	_, err := db.pool.Exec(ctx,
		"INSERT INTO chores ("+choreColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		chore.ID, chore.Name, chore.Description, chore.Value, chore.AssignedTo, chore.Completed, chore.CompletedDate, chore.CreatedAt,
	)
	return mapPgError(err)
}

func (db *PostgreSQL) GetChore(ctx context.Context, id string) (*models.Chore, error) {
	c, err := scanChore(db.pool.QueryRow(ctx, "SELECT "+choreColumns+" FROM chores WHERE id = $1", id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return c, nil
}

func (db *PostgreSQL) ListChores(ctx context.Context, filter *database.ChoreFilter) ([]*models.Chore, error) {
	var whereConditions []string
	args := []any{}
	argIndex := 1

	if filter != nil {
		if filter.AssignedTo != nil {
			whereConditions = append(whereConditions, fmt.Sprintf("assigned_to = $%d", argIndex))
			args = append(args, *filter.AssignedTo)
			argIndex++
		}
		if filter.Completed != nil {
			whereConditions = append(whereConditions, fmt.Sprintf("completed = $%d", argIndex))
			args = append(args, *filter.Completed)
		}
	}

	query := "SELECT " + choreColumns + " FROM chores"
	if len(whereConditions) > 0 {
		query += " WHERE " + strings.Join(whereConditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []*models.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		out = append(out, c)
	}
	return out, mapPgError(rows.Err())
}

func (db *PostgreSQL) MarkChoreCompleted(ctx context.Context, id string, at time.Time) (*models.Chore, error) {
	var chore *models.Chore
	err := db.InTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		c, err := scanChore(tx.QueryRow(ctx, "SELECT "+choreColumns+" FROM chores WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			return mapPgError(err)
		}
		if c.Completed {
			return database.ErrAlreadyCompleted
		}
		if _, err := tx.Exec(ctx, "UPDATE chores SET completed = TRUE, completed_date = $2 WHERE id = $1", id, at); err != nil {
			return mapPgError(err)
		}
		c.Completed = true
		completed := at.UTC()
		c.CompletedDate = &completed
		chore = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chore, nil
}

func (db *PostgreSQL) CreateExpenditure(ctx context.Context, exp *models.Expenditure) error {
	_, err := db.pool.Exec(ctx,
		"INSERT INTO expenditures (id, child_name, amount, date, description, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		exp.ID, exp.ChildName, exp.Amount, exp.Date, exp.Description, exp.CreatedAt,
	)
	return mapPgError(err)
}

func (db *PostgreSQL) ListExpenditures(ctx context.Context, filter *database.ExpenditureFilter) ([]*models.Expenditure, error) {
	query := "SELECT id, child_name, amount, date, description, created_at FROM expenditures"
	var args []any
	if filter != nil && filter.ChildName != nil {
		query += " WHERE child_name = $1"
		args = append(args, *filter.ChildName)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []*models.Expenditure
	for rows.Next() {
		var e models.Expenditure
		if err := rows.Scan(&e.ID, &e.ChildName, &e.Amount, &e.Date, &e.Description, &e.CreatedAt); err != nil {
			return nil, mapPgError(err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	return out, mapPgError(rows.Err())
}

func (db *PostgreSQL) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

// Close closes the database connection
func (db *PostgreSQL) Close() error {
	db.pool.Close()
	return nil
}
