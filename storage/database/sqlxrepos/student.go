package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/student"
	"github.com/trezcool/unireg/storage/database"
)

const studentColumns = "id, name, email, enrollment_no, address, password_hash, created_at, updated_at, last_login"

type studentRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	EnrollmentNo string    `db:"enrollment_no"`
	Address      string    `db:"address"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) boil(std student.Student) studentRow {
	return studentRow{
		ID:           std.ID,
		Name:         std.Name,
		Email:        std.Email,
		EnrollmentNo: std.EnrollmentNo,
		Address:      std.Address,
		PasswordHash: string(std.PasswordHash),
		CreatedAt:    std.CreatedAt.UTC(),
		UpdatedAt:    std.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(std.LastLogin.UTC(), !std.LastLogin.IsZero()),
	}
}

func (repo studentRepository) unboil(row studentRow) student.Student {
	std := student.Student{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		EnrollmentNo: row.EnrollmentNo,
		Address:      row.Address,
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		std.LastLogin = row.LastLogin.Time.UTC()
	}
	return std
}

// trapNoRowsErr maps "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CheckUniqueness(ctx context.Context, email, enrollmentNo string) error {
	exe := repo.exec

	var rows []studentRow
	q := exe.Rebind("SELECT " + studentColumns + " FROM students WHERE email = ? OR enrollment_no = ?")
	if err := sqlx.SelectContext(ctx, exe, &rows, q, email, enrollmentNo); err != nil {
		return errors.Wrap(err, "checking student uniqueness")
	}
	for _, row := range rows {
		if row.Email == email {
			return student.ErrEmailExists
		}
	}
	if len(rows) > 0 {
		return student.ErrEnrollmentExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	exe := repo.exec

	std.ID = uuid.New().String()
	row := repo.boil(std)
	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:id, :name, :email, :enrollment_no, :address, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, exe, q, row); err != nil {
		if database.IsUniqueViolation(err) {
			// the unique index won a race against CheckUniqueness; find out which one
			if uerr := repo.CheckUniqueness(ctx, std.Email, std.EnrollmentNo); uerr != nil {
				return student.Student{}, uerr
			}
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return repo.unboil(row), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	exe := repo.exec

	var where string
	var arg interface{}
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return student.Student{}, student.ErrNotFound
		}
		where, arg = "id = ?", filter.ID
	case filter.Email != "":
		where, arg = "email = ?", filter.Email
	case filter.EnrollmentNo != "":
		where, arg = "enrollment_no = ?", filter.EnrollmentNo
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	q := exe.Rebind("SELECT " + studentColumns + " FROM students WHERE " + where)
	if err := sqlx.GetContext(ctx, exe, &row, q, arg); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "finding student")
	}
	return repo.unboil(row), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	exe := repo.exec

	row := repo.boil(std)
	q := `UPDATE students SET
		name = :name, address = :address, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exe, q, row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudent(ctx, student.GetFilter{ID: std.ID})
}
