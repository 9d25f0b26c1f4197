package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/core/student"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()
	logger := NewRollbarLogger(log.New(&buf, "", 0), conf)
	logger.Enable(false)

	std := student.Student{ID: "b5c2", EnrollmentNo: "EN-1", Email: "asha@uni.test"}
	logger.Error("registering", errors.New("db down"), map[string]interface{}{"course": 101}, std)
	logger.Info("started")

	out := buf.String()
	assert.Contains(t, out, "[ERROR] registering\n")
	assert.Contains(t, out, "db down")
	assert.Contains(t, out, "map[course:101]")
	assert.NotContains(t, out, "asha@uni.test", "the student is only attached as the report's person")
	assert.Contains(t, out, "[INFO] started\n")
}
