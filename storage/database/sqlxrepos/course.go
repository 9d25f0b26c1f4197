package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/storage/database"
)

const courseColumns = "id, code, title, instructor, credits, capacity, enrolled"

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) *courseRepository {
	return &courseRepository{db: db}
}

// trapCourseNoRowsErr maps "no rows" err to course.ErrNotFound
func trapCourseNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *courseRepository) Atomically(ctx context.Context, fn func(tx course.TxRepository) error) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = errors.Wrap(err, "committing transaction")
		}
	}()

	return fn(&courseTx{tx: tx})
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	q := "SELECT " + courseColumns + " FROM courses ORDER BY id"
	if err := sqlx.SelectContext(ctx, repo.db, &courses, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var crs course.Course
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &crs, q, id); err != nil {
		return course.Course{}, trapCourseNoRowsErr(err, "finding course")
	}
	return crs, nil
}

func (repo *courseRepository) QueryStudentCourses(ctx context.Context, studentID string) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	q := repo.db.Rebind(`SELECT c.id, c.code, c.title, c.instructor, c.credits, c.capacity, c.enrolled
		FROM courses c
		INNER JOIN enrollments e ON e.course_id = c.id
		WHERE e.student_id = ?
		ORDER BY c.id`)
	if err := sqlx.SelectContext(ctx, repo.db, &courses, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student courses")
	}
	return courses, nil
}

// courseTx runs the course store operations within a single transaction.
type courseTx struct {
	tx *sqlx.Tx
}

var _ course.TxRepository = (*courseTx)(nil)

func (t *courseTx) lockSuffix() string {
	if t.tx.DriverName() == database.EnginePostgres {
		return " FOR UPDATE"
	}
	// SQLite transactions start with BEGIN IMMEDIATE and already hold the write lock.
	return ""
}

func (t *courseTx) LockCourse(ctx context.Context, id int) (course.Course, error) {
	var crs course.Course
	q := t.tx.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?" + t.lockSuffix())
	if err := t.tx.GetContext(ctx, &crs, q, id); err != nil {
		return course.Course{}, trapCourseNoRowsErr(err, "locking course")
	}
	return crs, nil
}

func (t *courseTx) IsEnrolled(ctx context.Context, studentID string, courseID int) (bool, error) {
	var cnt int
	q := t.tx.Rebind("SELECT COUNT(*) FROM enrollments WHERE student_id = ? AND course_id = ?")
	if err := t.tx.GetContext(ctx, &cnt, q, studentID, courseID); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (t *courseTx) AddEnrollment(ctx context.Context, studentID string, courseID int, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		t.tx.Rebind("UPDATE courses SET enrolled = enrolled + 1 WHERE id = ? AND enrolled < capacity"),
		courseID,
	)
	if err != nil {
		return errors.Wrap(err, "taking seat")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "taking seat")
	}
	if n == 0 {
		return course.ErrCourseFull
	}

	_, err = t.tx.ExecContext(ctx,
		t.tx.Rebind("INSERT INTO enrollments (student_id, course_id, created_at) VALUES (?, ?, ?)"),
		studentID, courseID, at.UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return course.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (t *courseTx) RemoveEnrollments(ctx context.Context, studentID string) (int, error) {
	var ids []int
	q := t.tx.Rebind("SELECT course_id FROM enrollments WHERE student_id = ? ORDER BY course_id" + t.lockSuffix())
	if err := t.tx.SelectContext(ctx, &ids, q, studentID); err != nil {
		return 0, errors.Wrap(err, "querying enrollments")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return t.releaseSeats(ctx, studentID, ids)
}

// releaseSeats frees one seat in each of the given courses and drops the matching enrollments.
// Enrollments of the student committed after ids were read are left untouched.
func (t *courseTx) releaseSeats(ctx context.Context, studentID string, ids []int) (int, error) {
	// lock courses in id order so that overlapping resets cannot deadlock
	query, args, err := sqlx.In("SELECT id FROM courses WHERE id IN (?) ORDER BY id"+t.lockSuffix(), ids)
	if err != nil {
		return 0, errors.Wrap(err, "building course lock")
	}
	var locked []int
	if err = t.tx.SelectContext(ctx, &locked, t.tx.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "locking courses")
	}

	query, args, err = sqlx.In("UPDATE courses SET enrolled = enrolled - 1 WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building seat release")
	}
	if _, err = t.tx.ExecContext(ctx, t.tx.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "releasing seats")
	}

	query, args, err = sqlx.In("DELETE FROM enrollments WHERE student_id = ? AND course_id IN (?)", studentID, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building enrollment delete")
	}
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting enrollments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting enrollments")
	}
	if int(n) != len(ids) || len(locked) != len(ids) {
		// seat counts no longer match the enrollments
		return 0, core.NewShutdownError(fmt.Sprintf(
			"integrity check: deleted %d enrollments, released %d seats in %d courses", n, len(ids), len(locked)))
	}
	return len(ids), nil
}

func (t *courseTx) CountCourses(ctx context.Context) (int, error) {
	var cnt int
	if err := t.tx.GetContext(ctx, &cnt, "SELECT COUNT(*) FROM courses"); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (t *courseTx) InsertCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `INSERT INTO courses (` + courseColumns + `)
		VALUES (:id, :code, :title, :instructor, :credits, :capacity, :enrolled)`
	if _, err := t.tx.NamedExecContext(ctx, q, crs); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}
