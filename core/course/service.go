package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrAlreadyEnrolled = errors.New("already registered for this course")
	ErrCourseFull      = errors.New("course is full")
)

const tracerName = "github.com/trezcool/unireg/core/course"

type (
	// TxRepository is the set of store operations available inside a transaction.
	TxRepository interface {
		// LockCourse reads a course and holds it against concurrent registrations until the transaction ends.
		LockCourse(ctx context.Context, id int) (Course, error)
		IsEnrolled(ctx context.Context, studentID string, courseID int) (bool, error)
		// AddEnrollment records the enrollment and takes one seat. Returns ErrCourseFull when no seat is left.
		AddEnrollment(ctx context.Context, studentID string, courseID int, at time.Time) error
		// RemoveEnrollments drops every enrollment of the student and frees their seats.
		RemoveEnrollments(ctx context.Context, studentID string) (int, error)
		CountCourses(ctx context.Context) (int, error)
		InsertCourse(ctx context.Context, c Course) (Course, error)
	}

	Repository interface {
		// Atomically runs fn in a single transaction; any error returned by fn rolls it back.
		Atomically(ctx context.Context, fn func(tx TxRepository) error) error
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		QueryStudentCourses(ctx context.Context, studentID string) ([]Course, error)
	}

	Service interface {
		Register(ctx context.Context, studentID string, courseID int) (Course, error)
		ResetSchedule(ctx context.Context, studentID string) error
		TotalCredits(ctx context.Context, studentID string) (int, error)
		Schedule(ctx context.Context, studentID string) (Schedule, error)
		ListCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		SeedIfEmpty(ctx context.Context, courses ...Course) (int, error)
	}

	service struct {
		repo   Repository
		tracer trace.Tracer
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo, tracer: otel.Tracer(tracerName)}
}

func (svc *service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return svc.tracer.Start(ctx, "course."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Register takes a seat in the course for the student.
func (svc *service) Register(ctx context.Context, studentID string, courseID int) (crs Course, err error) {
	ctx, span := svc.startSpan(ctx, "Register",
		attribute.String("student.id", studentID), attribute.Int("course.id", courseID))
	defer func() { endSpan(span, err) }()

	err = svc.repo.Atomically(ctx, func(tx TxRepository) error {
		c, err := tx.LockCourse(ctx, courseID)
		if err != nil {
			return err
		}

		enrolled, err := tx.IsEnrolled(ctx, studentID, courseID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if enrolled {
			return ErrAlreadyEnrolled
		}
		if c.IsFull() {
			return ErrCourseFull
		}

		if err = tx.AddEnrollment(ctx, studentID, courseID, time.Now().UTC()); err != nil {
			return err
		}
		c.Enrolled++
		crs = c
		return nil
	})
	if err != nil {
		return Course{}, err
	}
	return crs, nil
}

// ResetSchedule frees every seat held by the student.
func (svc *service) ResetSchedule(ctx context.Context, studentID string) (err error) {
	ctx, span := svc.startSpan(ctx, "ResetSchedule", attribute.String("student.id", studentID))
	defer func() { endSpan(span, err) }()

	return svc.repo.Atomically(ctx, func(tx TxRepository) error {
		n, err := tx.RemoveEnrollments(ctx, studentID)
		if err != nil {
			return errors.Wrap(err, "removing enrollments")
		}
		span.SetAttributes(attribute.Int("enrollments.removed", n))
		return nil
	})
}

func (svc *service) TotalCredits(ctx context.Context, studentID string) (total int, err error) {
	ctx, span := svc.startSpan(ctx, "TotalCredits", attribute.String("student.id", studentID))
	defer func() { endSpan(span, err) }()

	courses, err := svc.repo.QueryStudentCourses(ctx, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "querying student courses")
	}
	return SumCredits(courses), nil
}

func (svc *service) Schedule(ctx context.Context, studentID string) (sch Schedule, err error) {
	ctx, span := svc.startSpan(ctx, "Schedule", attribute.String("student.id", studentID))
	defer func() { endSpan(span, err) }()

	courses, err := svc.repo.QueryStudentCourses(ctx, studentID)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "querying student courses")
	}
	return NewSchedule(courses), nil
}

func (svc *service) ListCourses(ctx context.Context) (courses []Course, err error) {
	ctx, span := svc.startSpan(ctx, "ListCourses")
	defer func() { endSpan(span, err) }()

	courses, err = svc.repo.QueryCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (svc *service) GetCourse(ctx context.Context, id int) (crs Course, err error) {
	ctx, span := svc.startSpan(ctx, "GetCourse", attribute.Int("course.id", id))
	defer func() { endSpan(span, err) }()

	return svc.repo.GetCourse(ctx, id)
}

// SeedIfEmpty inserts courses when the catalog has none, and returns how many were inserted.
func (svc *service) SeedIfEmpty(ctx context.Context, courses ...Course) (inserted int, err error) {
	ctx, span := svc.startSpan(ctx, "SeedIfEmpty")
	defer func() { endSpan(span, err) }()

	if len(courses) == 0 {
		courses = DefaultCatalog()
	}

	err = svc.repo.Atomically(ctx, func(tx TxRepository) error {
		cnt, err := tx.CountCourses(ctx)
		if err != nil {
			return errors.Wrap(err, "counting courses")
		}
		if cnt > 0 {
			return nil
		}
		for _, c := range courses {
			c.Enrolled = 0
			if _, err = tx.InsertCourse(ctx, c); err != nil {
				return errors.Wrapf(err, "inserting course %s", c.Code)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
