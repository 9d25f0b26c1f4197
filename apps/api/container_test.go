package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/unireg/apps/api/echo"
	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/core/student"
	"github.com/trezcool/unireg/storage/database"
)

func TestContainer(t *testing.T) {
	tests := []struct {
		name   string
		engine string
		wantDB bool
	}{
		{name: "sqlite", engine: database.EngineSQLite, wantDB: true},
		{name: "in-memory", engine: database.EngineMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := core.NewTestConfig()
			conf.Database.Engine = tt.engine

			c, err := newContainer(func() *core.Config { return conf })
			require.NoError(t, err)

			err = c.Invoke(func(dbParam DBParam, stdSvc student.Service, crsSvc course.Service, server *echoapi.Server) {
				if dbParam.DB != nil {
					t.Cleanup(func() { _ = dbParam.DB.Close() })
				}
				assert.Equal(t, tt.wantDB, dbParam.DB != nil)
				require.NotNil(t, server)

				ctx := context.Background()
				n, err := crsSvc.SeedIfEmpty(ctx)
				require.NoError(t, err)
				assert.Equal(t, 6, n)

				courses, err := crsSvc.ListCourses(ctx)
				require.NoError(t, err)
				assert.Equal(t, course.DefaultCatalog(), courses)

				std, err := stdSvc.CreateAccount(ctx, student.NewStudent{
					Name: "Asha", EnrollmentNo: "EN-1", Email: "asha@uni.test", Address: "x", Password: "pwd",
				})
				require.NoError(t, err)
				_, err = crsSvc.Register(ctx, std.ID, 101)
				require.NoError(t, err)

				total, err := crsSvc.TotalCredits(ctx, std.ID)
				require.NoError(t, err)
				assert.Equal(t, 4, total)
			})
			require.NoError(t, err)
		})
	}
}
