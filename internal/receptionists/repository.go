package receptionists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Account is a receptionist login. Only approved accounts may sign in.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Approved     bool       `json:"approved"`
	CreatedAt    time.Time  `json:"created_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
}

// Repository persists receptionist accounts.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Approve(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SQLRepository stores accounts through database/sql.
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

var _ Repository = (*SQLRepository)(nil)

const accountColumns = `id, username, password_hash, approved, created_at, approved_at`

func (r *SQLRepository) Create(ctx context.Context, a *Account) error {
	query := `
		INSERT INTO receptionists (id, username, password_hash, approved, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Username, a.PasswordHash, a.Approved, a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("receptionists: insert account: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM receptionists WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM receptionists WHERE username = $1`, username)
	return scanAccount(row)
}

func (r *SQLRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM receptionists ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("receptionists: list accounts: %w", err)
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("receptionists: iterate accounts: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Approve(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE receptionists SET approved = TRUE, approved_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("receptionists: approve account: %w", err)
	}
	return expectOne(res)
}

func (r *SQLRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receptionists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("receptionists: delete account: %w", err)
	}
	return expectOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*Account, error) {
	var a Account
	var approvedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Approved, &a.CreatedAt, &approvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("receptionists: scan account: %w", err)
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		a.ApprovedAt = &t
	}
	return &a, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("receptionists: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation understands both the pgx and lib/pq drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
