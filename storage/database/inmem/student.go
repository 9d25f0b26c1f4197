package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/unireg/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) checkUniqueness(email, enrollmentNo string) error {
	for _, std := range repo.db.table {
		if std.Email == email {
			return student.ErrEmailExists
		}
	}
	for _, std := range repo.db.table {
		if std.EnrollmentNo == enrollmentNo {
			return student.ErrEnrollmentExists
		}
	}
	return nil
}

func (repo *studentRepository) CheckUniqueness(_ context.Context, email, enrollmentNo string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.checkUniqueness(email, enrollmentNo)
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(std.Email, std.EnrollmentNo); err != nil {
		return student.Student{}, err
	}
	std.ID = uuid.New().String()
	std.PasswordHash = append([]byte(nil), std.PasswordHash...)
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if std, ok := repo.db.table[filter.ID]; ok {
			return *std, nil
		}
		return student.Student{}, student.ErrNotFound
	}
	for _, std := range repo.db.table {
		if (filter.Email != "" && std.Email == filter.Email) ||
			(filter.Email == "" && filter.EnrollmentNo != "" && std.EnrollmentNo == filter.EnrollmentNo) {
			return *std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only mutable fields are saved
	orig, ok := repo.db.table[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if std.PasswordHash != nil {
		orig.PasswordHash = append([]byte(nil), std.PasswordHash...)
	}
	orig.Name = std.Name
	orig.Address = std.Address
	orig.UpdatedAt = std.UpdatedAt
	orig.LastLogin = std.LastLogin
	return *orig, nil
}
