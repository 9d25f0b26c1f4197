package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/unireg/core"
)

var (
	// errors
	ErrNotFound           = errors.New("student not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrEnrollmentExists   = errors.New("enrollment number already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrEnrollmentExists when either value is taken.
		CheckUniqueness(ctx context.Context, email, enrollmentNo string) error
		// CreateStudent maps unique constraint violations to ErrEmailExists or ErrEnrollmentExists.
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
	}

	Service interface {
		CreateAccount(ctx context.Context, ns NewStudent) (Student, error)
		Authenticate(ctx context.Context, email, pwd string) (Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByEmail(ctx context.Context, email string) (Student, error)
		ResetPassword(ctx context.Context, email, pwd string) (Student, error)
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{repo: repo, validate: validate}
}

// uniquenessError turns a duplicate email or enrollment number into a field error.
func uniquenessError(err error) error {
	var field string
	switch errors.Cause(err) {
	case ErrEmailExists:
		field = "email"
	case ErrEnrollmentExists:
		field = "enrollment_no"
	default:
		return err
	}
	cause := errors.Cause(err)
	return core.NewValidationError(cause, core.FieldError{Field: field, Error: cause.Error()})
}

func (svc *service) CreateAccount(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}
	if err := svc.repo.CheckUniqueness(ctx, ns.Email, ns.EnrollmentNo); err != nil {
		return Student{}, uniquenessError(err)
	}

	now := time.Now().UTC()
	std := Student{
		Name:         ns.Name,
		EnrollmentNo: ns.EnrollmentNo,
		Email:        ns.Email,
		Address:      ns.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := std.SetPassword(ns.Password); err != nil {
		return Student{}, errors.Wrap(err, "hashing password")
	}

	std, err := svc.repo.CreateStudent(ctx, std)
	if err != nil {
		// lost a race against a concurrent sign-up
		return Student{}, uniquenessError(err)
	}
	return std, nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (Student, error) {
	std, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, ErrInvalidCredentials
		}
		return Student{}, errors.Wrap(err, "finding student by email")
	}
	if err = std.CheckPassword(pwd); err != nil {
		return Student{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	std.LastLogin = now
	std.UpdatedAt = now
	std, err = svc.repo.UpdateStudent(ctx, std)
	if err != nil {
		return Student{}, errors.Wrap(err, "setting lastLogin")
	}
	return std, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	if id == "" {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Student, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, GetFilter{Email: email})
}

func (svc *service) ResetPassword(ctx context.Context, email, pwd string) (Student, error) {
	if core.CleanString(pwd) == "" {
		return Student{}, core.NewValidationError(
			errors.New("password cannot be blank"),
			core.FieldError{Field: "password", Error: "this field cannot be blank"},
		)
	}
	std, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Student{}, err
	}
	if err = std.SetPassword(pwd); err != nil {
		return Student{}, errors.Wrap(err, "hashing password")
	}
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}
