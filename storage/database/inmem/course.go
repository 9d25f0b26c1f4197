package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/unireg/core/course"
)

type courseRepository struct {
	db *catalogTables
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.catalog}
}

type catalogSnapshot struct {
	courses     map[int]course.Course
	enrollments map[string]map[int]course.Enrollment
}

func (t *catalogTables) snapshot() catalogSnapshot {
	snap := catalogSnapshot{
		courses:     make(map[int]course.Course, len(t.courses)),
		enrollments: make(map[string]map[int]course.Enrollment, len(t.enrollments)),
	}
	for id, c := range t.courses {
		snap.courses[id] = *c
	}
	for sid, set := range t.enrollments {
		cp := make(map[int]course.Enrollment, len(set))
		for cid, e := range set {
			cp[cid] = e
		}
		snap.enrollments[sid] = cp
	}
	return snap
}

func (t *catalogTables) restore(snap catalogSnapshot) {
	t.courses = make(map[int]*course.Course, len(snap.courses))
	for id, c := range snap.courses {
		c := c
		t.courses[id] = &c
	}
	t.enrollments = snap.enrollments
}

// Atomically holds the catalog lock while fn runs and rolls every change back if it fails.
func (repo *courseRepository) Atomically(_ context.Context, fn func(tx course.TxRepository) error) (err error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	snap := repo.db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			repo.db.restore(snap)
			panic(p)
		}
		if err != nil {
			repo.db.restore(snap)
		}
	}()

	return fn(&courseTx{db: repo.db})
}

func (repo *courseRepository) QueryCourses(_ context.Context) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sortCourses(courses)
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryStudentCourses(_ context.Context, studentID string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	set := repo.db.enrollments[studentID]
	courses := make([]course.Course, 0, len(set))
	for cid := range set {
		if c, ok := repo.db.courses[cid]; ok {
			courses = append(courses, *c)
		}
	}
	sortCourses(courses)
	return courses, nil
}

func sortCourses(courses []course.Course) {
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
}

// courseTx works on the catalog while the caller holds its write lock.
type courseTx struct {
	db *catalogTables
}

var _ course.TxRepository = (*courseTx)(nil)

func (t *courseTx) LockCourse(_ context.Context, id int) (course.Course, error) {
	if c, ok := t.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (t *courseTx) IsEnrolled(_ context.Context, studentID string, courseID int) (bool, error) {
	_, ok := t.db.enrollments[studentID][courseID]
	return ok, nil
}

func (t *courseTx) AddEnrollment(_ context.Context, studentID string, courseID int, at time.Time) error {
	c, ok := t.db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if c.IsFull() {
		return course.ErrCourseFull
	}
	set, ok := t.db.enrollments[studentID]
	if !ok {
		set = make(map[int]course.Enrollment)
		t.db.enrollments[studentID] = set
	}
	if _, ok = set[courseID]; ok {
		return course.ErrAlreadyEnrolled
	}

	c.Enrolled++
	set[courseID] = course.Enrollment{StudentID: studentID, CourseID: courseID, CreatedAt: at.UTC()}
	return nil
}

func (t *courseTx) RemoveEnrollments(_ context.Context, studentID string) (int, error) {
	set := t.db.enrollments[studentID]
	for cid := range set {
		if c, ok := t.db.courses[cid]; ok {
			c.Enrolled--
		}
	}
	delete(t.db.enrollments, studentID)
	return len(set), nil
}

func (t *courseTx) CountCourses(_ context.Context) (int, error) {
	return len(t.db.courses), nil
}

func (t *courseTx) InsertCourse(_ context.Context, crs course.Course) (course.Course, error) {
	if _, ok := t.db.courses[crs.ID]; ok {
		return course.Course{}, errDuplicateKey
	}
	for _, c := range t.db.courses {
		if c.Code == crs.Code {
			return course.Course{}, errDuplicateKey
		}
	}
	t.db.courses[crs.ID] = &crs
	return crs, nil
}
