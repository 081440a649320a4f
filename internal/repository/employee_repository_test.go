package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ems-docs-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestEmployeeFindByEmailIgnoresCase(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "department", "active", "created_at", "updated_at"}).
		AddRow("emp-1", "user@example.com", "User", "Finance", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE LOWER(email) = LOWER($1) AND active = TRUE LIMIT 1")).
		WithArgs("User@Example.com").
		WillReturnRows(rows)

	employee, err := repo.FindByEmail(context.Background(), " User@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", employee.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeFindByEmailMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE LOWER(email)")).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEmployeeSearchEscapesPattern(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "department"}).
		AddRow("emp-2", "ana@example.com", "Ana", "HR")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, department FROM employees")).
		WithArgs("emp-1", `%an\_a%`, 5).
		WillReturnRows(rows)

	result, err := repo.Search(context.Background(), "an_a", "emp-1", 5)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Ana", result[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectExec("INSERT INTO employees").WillReturnResult(sqlmock.NewResult(1, 1))

	employee := &models.Employee{Email: "new@example.com", FullName: "New", Department: "Ops", Active: true}
	require.NoError(t, repo.Create(context.Background(), employee))
	assert.NotEmpty(t, employee.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
