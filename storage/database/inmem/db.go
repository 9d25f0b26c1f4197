package inmemdb

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/core/student"
)

var errDuplicateKey = errors.New("duplicate key")

type (
	DB struct {
		student *studentTable
		catalog *catalogTables
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	// catalogTables guards courses and enrollments with a single lock.
	catalogTables struct {
		sync.RWMutex
		courses     map[int]*course.Course
		enrollments map[string]map[int]course.Enrollment // student ID -> course ID
	}
)

func Open() (*DB, error) {
	db := &DB{
		student: &studentTable{table: make(map[string]*student.Student)},
		catalog: &catalogTables{
			courses:     make(map[int]*course.Course),
			enrollments: make(map[string]map[int]course.Enrollment),
		},
	}
	return db, nil
}
