package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedback-service/internal/domain"
)

var errNoPool = errors.New("repository: postgres pool not configured")

// EmployeeRepository is the employee directory.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*domain.Employee, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
}

type employeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository returns a Postgres-backed implementation.
func NewEmployeeRepository(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepository{pool: pool}
}

const employeeColumns = `id, name, email, COALESCE(phone, ''), password_hash, role, created_at, updated_at`

func scanEmployee(row pgx.Row) (*domain.Employee, error) {
	var e domain.Employee
	if err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Email,
		&e.Phone,
		&e.PasswordHash,
		&e.Role,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}

func (r *employeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	if r.pool == nil {
		return errNoPool
	}
	if err := employee.NormalizeIdentifiers(); err != nil {
		return err
	}
	const query = `
        INSERT INTO employees (name, email, phone, password_hash, role)
        VALUES ($1, $2, NULLIF($3, ''), $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		employee.Name,
		employee.Email,
		employee.Phone,
		employee.PasswordHash,
		employee.Role,
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
	return mapError(err)
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	if r.pool == nil {
		return nil, errNoPool
	}
	const query = `SELECT ` + employeeColumns + ` FROM employees WHERE id=$1`
	return scanEmployee(r.pool.QueryRow(ctx, query, id))
}

func (r *employeeRepository) GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*domain.Employee, error) {
	if r.pool == nil {
		return nil, errNoPool
	}
	field, value, ok := lookupKey(emailOrPhone)
	if !ok {
		return nil, ErrNotFound
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email=$1`
	if field == "phone" {
		query = `SELECT ` + employeeColumns + ` FROM employees WHERE phone=$1`
	}
	return scanEmployee(r.pool.QueryRow(ctx, query, value))
}

// lookupKey decides which column a login subject addresses. Subjects with
// '@' only ever match emails, everything else only matches phones.
func lookupKey(emailOrPhone string) (field, value string, ok bool) {
	subject := strings.TrimSpace(emailOrPhone)
	if subject == "" {
		return "", "", false
	}
	if domain.IsEmailSubject(subject) {
		return "email", strings.ToLower(subject), true
	}
	phone, err := domain.NormalizePhone(subject)
	if err != nil {
		return "", "", false
	}
	return "phone", phone, true
}

func (r *employeeRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if r.pool == nil {
		return errNoPool
	}
	const query = `UPDATE employees SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *employeeRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	if r.pool == nil {
		return errNoPool
	}
	const query = `UPDATE employees SET role=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, role, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
