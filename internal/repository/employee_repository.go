package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

const employeeColumns = `id, email, full_name, department, active, created_at, updated_at`

// EmployeeRepository provides read access to the employee directory used for sharing.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository creates a new instance of EmployeeRepository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindByEmail returns an active employee by email address, ignoring case.
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE LOWER(email) = LOWER($1) AND active = TRUE LIMIT 1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, strings.TrimSpace(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by email: %w", err)
	}
	return &employee, nil
}

// FindByID returns an employee by identifier.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 LIMIT 1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by id: %w", err)
	}
	return &employee, nil
}

// Search matches active employees by name or email substring, excluding one id.
func (r *EmployeeRepository) Search(ctx context.Context, term, excludeID string, limit int) ([]models.EmployeeCandidate, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT id, email, full_name, department FROM employees
	WHERE active = TRUE AND id <> $1 AND (full_name ILIKE $2 OR email ILIKE $2)
	ORDER BY full_name ASC LIMIT $3`
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	candidates := make([]models.EmployeeCandidate, 0)
	if err := r.db.SelectContext(ctx, &candidates, query, excludeID, pattern, limit); err != nil {
		return nil, fmt.Errorf("search employees: %w", err)
	}
	return candidates, nil
}

// Create inserts an employee record. Used by directory sync and fixtures.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now

	const query = `INSERT INTO employees (id, email, full_name, department, active, created_at, updated_at)
	VALUES (:id, :email, :full_name, :department, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
