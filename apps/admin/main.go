package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/core/student"
	"github.com/trezcool/unireg/storage/database"
	"github.com/trezcool/unireg/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(context.Background(), conf))
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(database.StatusCheck(context.Background(), db))

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	cli := commandLine{
		db:     db,
		stdSvc: student.NewService(sqlxrepos.NewStudentRepository(db), validate),
		crsSvc: course.NewService(sqlxrepos.NewCourseRepository(db)),
		out:    os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
