package main

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/unireg/apps/api/echo"
	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/core/student"
	logsvc "github.com/trezcool/unireg/services/logger"
	"github.com/trezcool/unireg/storage/database"
	inmemdb "github.com/trezcool/unireg/storage/database/inmem"
	"github.com/trezcool/unireg/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// DBParam carries the SQL database; it is absent when the in-memory engine is configured.
type DBParam struct {
	dig.In
	DB *sqlx.DB `optional:"true"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	stdSvc student.Service,
	crsSvc course.Service,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		StudentSvc: stdSvc,
		CourseSvc:  crsSvc,
	})
}

type provider struct {
	constructor interface{}
	opts        []dig.ProvideOption
}

// storeProviders returns the repositories backing the configured database engine.
func storeProviders(conf *core.Config) []provider {
	if conf.Database.Engine == database.EngineMemory {
		return []provider{
			{constructor: inmemdb.Open},
			{constructor: inmemdb.NewStudentRepository, opts: []dig.ProvideOption{dig.As(new(student.Repository))}},
			{constructor: inmemdb.NewCourseRepository, opts: []dig.ProvideOption{dig.As(new(course.Repository))}},
		}
	}
	return []provider{
		{constructor: newDB},
		{constructor: sqlxrepos.NewStudentRepository, opts: []dig.ProvideOption{dig.As(new(student.Repository))}},
		{constructor: sqlxrepos.NewCourseRepository, opts: []dig.ProvideOption{dig.As(new(course.Repository))}},
	}
}

// newContainer returns the dependency injection dig.Container of the API.
func newContainer(newConfig func() *core.Config) (*dig.Container, error) {
	c := dig.New()
	conf := newConfig()

	providers := []provider{
		{constructor: func() *core.Config { return conf }},
		{constructor: newLogger},
		{constructor: newDBLogger, opts: []dig.ProvideOption{dig.Name("dbLogger")}},
		{constructor: core.NewTranslator},
		{constructor: newValidator},
	}
	providers = append(providers, storeProviders(conf)...)
	providers = append(providers,
		provider{constructor: student.NewService},
		provider{constructor: course.NewService},
		provider{constructor: newServer},
	)
	for _, p := range providers {
		if err := c.Provide(p.constructor, p.opts...); err != nil {
			return nil, errors.Wrap(err, "failed to provide dependency")
		}
	}
	return c, nil
}
