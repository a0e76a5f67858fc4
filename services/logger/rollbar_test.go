package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/coachdesk/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	args := logger.prepare("role resolution failure", []interface{}{
		errors.New("rpc failed"),
		core.LogUser{ID: "u1", Email: "boss@test.cd"},
		core.LogUser{ID: "u2"},
	})
	assert.Len(t, args, 2) // msg + error; users are set as rollbar person

	logger.Warn("role resolution failure", errors.New("rpc failed"), core.LogUser{ID: "u1"})
	assert.Contains(t, buf.String(), "WARN: role resolution failure")
	assert.Contains(t, buf.String(), "rpc failed")
	assert.NotContains(t, buf.String(), "u1")
}
