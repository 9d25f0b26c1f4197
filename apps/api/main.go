package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	echoapi "github.com/trezcool/unireg/apps/api/echo"
	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/services/tracing"
)

func main() {
	c, err := newContainer(core.NewConfig)
	if err != nil {
		log.Fatal(err)
	}
	if err = c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(
	conf *core.Config,
	logger core.Logger,
	dbLoggerParam DBLoggerParam,
	dbParam DBParam,
	crsSvc course.Service,
	server *echoapi.Server,
) {
	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer func() {
		logger.Info("Application stopped")
		if l, ok := logger.(interface{ Close() }); ok {
			l.Close()
		}
	}()

	dbLogger := dbLoggerParam.Logger
	if db := dbParam.DB; db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
	} else {
		dbLogger.Warn("in-memory store: data is lost on shutdown")
	}

	shutdownTracing, err := tracing.Setup(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up tracing: %v", err), err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error(fmt.Sprintf("flushing traces: %v", err), err)
		}
	}()

	n, err := crsSvc.SeedIfEmpty(context.Background())
	if err != nil {
		logger.Fatal(fmt.Sprintf("seeding course catalog: %v", err), err)
	}
	if n > 0 {
		dbLogger.Info(fmt.Sprintf("course catalog seeded with %d courses", n))
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
