package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/core/student"
	"github.com/trezcool/unireg/storage/database/sqlxrepos"
	"github.com/trezcool/unireg/testutil"
)

type testCLI struct {
	*commandLine
	stdRepo student.Repository
	crsRepo course.Repository
	out     *bytes.Buffer
}

func setup(t *testing.T) testCLI {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	stdRepo := sqlxrepos.NewStudentRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	var out bytes.Buffer
	cli := &commandLine{
		db:     db,
		stdSvc: student.NewService(stdRepo, validate),
		crsSvc: course.NewService(crsRepo),
		out:    &out,
	}
	return testCLI{commandLine: cli, stdRepo: stdRepo, crsRepo: crsRepo, out: &out}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITest(t *testing.T, cli testCLI, tt cliTest) {
	args := append([]string{"admin"}, tt.args...)
	err := cli.run(args)
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli.out.Reset()
			runCLITest(t, cli, tt)
			assert.Contains(t, cli.out.String(), "Usage:")
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })

	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "waitlist", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, tt)
		})
	}
}

func Test_commandLine_migrateVersion(t *testing.T) {
	cli := setup(t)
	runCLITest(t, cli, cliTest{args: []string{"migrate", "version"}})
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	runCLITest(t, cli, cliTest{args: []string{"seed"}})
	assert.Contains(t, cli.out.String(), "seeded 6 courses")

	courses, err := cli.crsSvc.ListCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, course.DefaultCatalog(), courses)

	cli.out.Reset()
	runCLITest(t, cli, cliTest{args: []string{"seed"}})
	assert.Contains(t, cli.out.String(), "nothing to seed")

	courses, err = cli.crsSvc.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 6)
}

func Test_commandLine_courses(t *testing.T) {
	cli := setup(t)
	catalog := testutil.SeedCatalog(t, cli.crsRepo)
	std := testutil.CreateStudent(t, cli.stdRepo, "Asha", "EN-1", "asha@uni.test", "")

	_, err := cli.crsSvc.Register(context.Background(), std.ID, catalog[0].ID)
	require.NoError(t, err)

	runCLITest(t, cli, cliTest{args: []string{"courses"}})
	out := cli.out.String()
	assert.Contains(t, out, "SEATS")
	for _, c := range catalog {
		assert.Contains(t, out, c.Code)
	}
	assert.Contains(t, out, fmt.Sprintf("1/%d", catalog[0].Capacity))
	assert.Contains(t, out, fmt.Sprintf("0/%d", catalog[1].Capacity))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	std := testutil.CreateStudent(t, cli.stdRepo, "Asha", "EN-1", "asha@uni.test", "mdr")

	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"resetpassword", "-username", "asha"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@uni.test"}, wantErr: errHelp},
		{name: "student not found", args: []string{"resetpassword", "-email", "lol@uni.test"}, extra: extra{pwd: "lol"}, wantErr: student.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", std.Email}, extra: extra{pwd: "lmao"}},
		{name: "reset with mixed case email", args: []string{"resetpassword", "-email", " ASHA@uni.test"}, extra: extra{pwd: "rofl"}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			runCLITest(t, cli, tt)
			if tt.wantErr != nil {
				return
			}

			_, err := cli.stdSvc.Authenticate(context.Background(), std.Email, tt.extra.(extra).pwd)
			assert.NoError(t, err, "new password should be accepted")
		})
	}
}
