package graceful

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flash-service/flash_service/pkg/logger"
)

type recorder struct {
	name  string
	order *[]string
	err   error
}

func (r recorder) Shutdown(time.Duration) error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func (r recorder) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestShutdownOrder(t *testing.T) {
	var order []string
	sm := NewShutdownManager(nil, time.Second, logger.New("debug", "test"))
	sm.Register(recorder{name: "scheduler", order: &order, err: errors.New("still running")})
	sm.RegisterCloser("redis", recorder{name: "redis", order: &order})
	sm.RegisterCloser("database", recorder{name: "database", order: &order})

	done := make(chan struct{})
	go func() {
		sm.WaitForShutdown()
		close(done)
	}()
	// deliver the signal directly to avoid signalling the test process
	sm.signals <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	assert.Equal(t, []string{"scheduler", "redis", "database"}, order)
}
