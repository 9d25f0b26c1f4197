package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/core/student"
)

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, enrollmentNo, email, pwd string,
	createdAt ...time.Time,
) student.Student {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	std := student.Student{
		Name:         name,
		EnrollmentNo: enrollmentNo,
		Email:        email,
		Address:      "1 Campus Road",
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	if pwd != "" {
		if err := std.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStudent() failed: %v", err)
		}
	}
	std, err := repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// SeedCatalog inserts courses (the default catalog when none are given) into an empty store.
func SeedCatalog(t *testing.T, repo course.Repository, courses ...course.Course) []course.Course {
	t.Helper()

	if len(courses) == 0 {
		courses = course.DefaultCatalog()
	}
	err := repo.Atomically(context.Background(), func(tx course.TxRepository) error {
		for _, c := range courses {
			if _, err := tx.InsertCourse(context.Background(), c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("SeedCatalog() failed: %v", err)
	}
	return courses
}
