package student_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/student"
	inmemdb "github.com/trezcool/unireg/storage/database/inmem"
	"github.com/trezcool/unireg/storage/database/sqlxrepos"
	"github.com/trezcool/unireg/testutil"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func repos(t *testing.T) map[string]student.Repository {
	memDB, err := inmemdb.Open()
	require.NoError(t, err)
	return map[string]student.Repository{
		"inmem":  inmemdb.NewStudentRepository(memDB),
		"sqlite": sqlxrepos.NewStudentRepository(testutil.PrepareDB(t)),
	}
}

func newStudent() student.NewStudent {
	return student.NewStudent{
		Name:         "Asha Patil",
		EnrollmentNo: "EN-2023-001",
		Email:        "Asha@Uni.Test",
		Address:      "12 Hostel Lane",
		Password:     "s3cr3t",
	}
}

func TestService_CreateAccount(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := student.NewService(repo, newValidator())

			ns := newStudent()
			ns.EnrollmentNo = "  EN-2023-001 "
			std, err := svc.CreateAccount(ctx, ns)
			require.NoError(t, err)

			assert.NotEmpty(t, std.ID)
			assert.Equal(t, "asha@uni.test", std.Email)
			assert.Equal(t, "EN-2023-001", std.EnrollmentNo)
			assert.NotContains(t, string(std.PasswordHash), "s3cr3t")
			assert.NoError(t, std.CheckPassword("s3cr3t"))

			got, err := svc.GetByEmail(ctx, "ASHA@uni.test")
			require.NoError(t, err)
			assert.Equal(t, std.ID, got.ID)
		})
	}
}

func TestService_CreateAccount_invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(ns *student.NewStudent)
		wantField string
	}{
		{name: "blank name", mutate: func(ns *student.NewStudent) { ns.Name = "   " }, wantField: "name"},
		{name: "blank enrollment no", mutate: func(ns *student.NewStudent) { ns.EnrollmentNo = "" }, wantField: "enrollment_no"},
		{name: "blank address", mutate: func(ns *student.NewStudent) { ns.Address = "\t" }, wantField: "address"},
		{name: "blank password", mutate: func(ns *student.NewStudent) { ns.Password = "  " }, wantField: "password"},
		{name: "bad email", mutate: func(ns *student.NewStudent) { ns.Email = "not-an-email" }, wantField: "email"},
	}
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			svc := student.NewService(repo, newValidator())
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					ns := newStudent()
					tt.mutate(&ns)
					_, err := svc.CreateAccount(context.Background(), ns)

					var verrs validator.ValidationErrors
					require.True(t, errors.As(err, &verrs), "got %v", err)
					require.Len(t, verrs, 1)
					assert.Equal(t, tt.wantField, verrs[0].Field())
				})
			}

			_, err := svc.GetByEmail(context.Background(), newStudent().Email)
			assert.Equal(t, student.ErrNotFound, errors.Cause(err), "no account may be created")
		})
	}
}

func TestService_CreateAccount_duplicates(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := student.NewService(repo, newValidator())
			_, err := svc.CreateAccount(ctx, newStudent())
			require.NoError(t, err)

			tests := []struct {
				name      string
				ns        student.NewStudent
				wantErr   error
				wantField string
			}{
				{
					name:    "same email, different case",
					ns:      student.NewStudent{Name: "B", EnrollmentNo: "EN-2", Email: "ASHA@UNI.TEST", Address: "x", Password: "p"},
					wantErr: student.ErrEmailExists, wantField: "email",
				},
				{
					name:    "same enrollment no",
					ns:      student.NewStudent{Name: "C", EnrollmentNo: "EN-2023-001", Email: "c@uni.test", Address: "x", Password: "p"},
					wantErr: student.ErrEnrollmentExists, wantField: "enrollment_no",
				},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					_, err := svc.CreateAccount(ctx, tt.ns)

					var verr *core.ValidationError
					require.True(t, errors.As(err, &verr), "got %v", err)
					assert.Equal(t, tt.wantErr, verr.Err)
					require.Len(t, verr.Fields, 1)
					assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				})
			}

			_, err = svc.GetByEmail(ctx, "c@uni.test")
			assert.Equal(t, student.ErrNotFound, errors.Cause(err))
		})
	}
}

func TestService_CreateAccount_concurrentDuplicates(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			svc := student.NewService(repo, newValidator())

			const n = 5
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = svc.CreateAccount(context.Background(), newStudent())
				}(i)
			}
			wg.Wait()

			var created int
			for _, err := range errs {
				if err == nil {
					created++
					continue
				}
				assert.Equal(t, student.ErrEmailExists, errors.Cause(err).(*core.ValidationError).Err)
			}
			assert.Equal(t, 1, created)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := student.NewService(repo, newValidator())
			std, err := svc.CreateAccount(ctx, newStudent())
			require.NoError(t, err)
			assert.True(t, std.LastLogin.IsZero())

			tests := []struct {
				name    string
				email   string
				pwd     string
				wantErr error
			}{
				{name: "unknown email", email: "nobody@uni.test", pwd: "s3cr3t", wantErr: student.ErrInvalidCredentials},
				{name: "wrong password", email: "asha@uni.test", pwd: "nope", wantErr: student.ErrInvalidCredentials},
				{name: "empty email", email: "", pwd: "s3cr3t", wantErr: student.ErrInvalidCredentials},
				{name: "case insensitive email", email: " ASHA@uni.TEST ", pwd: "s3cr3t"},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := svc.Authenticate(ctx, tt.email, tt.pwd)
					if tt.wantErr != nil {
						assert.Equal(t, tt.wantErr, err)
						return
					}
					require.NoError(t, err)
					assert.Equal(t, std.ID, got.ID)
					assert.False(t, got.LastLogin.IsZero())
				})
			}
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := student.NewService(repo, newValidator())
			_, err := svc.CreateAccount(ctx, newStudent())
			require.NoError(t, err)

			_, err = svc.ResetPassword(ctx, "asha@uni.test", strings.Repeat(" ", 3))
			var verr *core.ValidationError
			assert.True(t, errors.As(err, &verr))

			_, err = svc.ResetPassword(ctx, "nobody@uni.test", "n3w")
			assert.Equal(t, student.ErrNotFound, errors.Cause(err))

			_, err = svc.ResetPassword(ctx, "asha@uni.test", "n3w")
			require.NoError(t, err)

			_, err = svc.Authenticate(ctx, "asha@uni.test", "s3cr3t")
			assert.Equal(t, student.ErrInvalidCredentials, err)
			_, err = svc.Authenticate(ctx, "asha@uni.test", "n3w")
			assert.NoError(t, err)
		})
	}
}

func TestService_GetByID(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := student.NewService(repo, newValidator())
			std, err := svc.CreateAccount(ctx, newStudent())
			require.NoError(t, err)

			got, err := svc.GetByID(ctx, std.ID)
			require.NoError(t, err)
			assert.Equal(t, std.Email, got.Email)

			for _, id := range []string{"", "not-a-uuid", "7d1f0c8e-5a52-4bde-9d8f-000000000000"} {
				_, err = svc.GetByID(ctx, id)
				assert.Equal(t, student.ErrNotFound, errors.Cause(err), id)
			}
		})
	}
}
