package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/worker"
)

type fakeRepairer struct {
	calls    atomic.Int32
	repaired int
	err      error
}

func (f *fakeRepairer) RepairPending(ctx context.Context, limit int) (int, error) {
	f.calls.Add(1)
	return f.repaired, f.err
}

func TestOrderRepair_RunOnceLogsResult(t *testing.T) {
	log, hook := test.NewNullLogger()

	worker.NewOrderRepair(&fakeRepairer{repaired: 2}, time.Minute, 10, log).RunOnce(context.Background())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 2, hook.LastEntry().Data["repaired"])

	hook.Reset()
	worker.NewOrderRepair(&fakeRepairer{err: errors.New("db down")}, time.Minute, 10, log).RunOnce(context.Background())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	hook.Reset()
	worker.NewOrderRepair(&fakeRepairer{}, time.Minute, 10, log).RunOnce(context.Background())
	assert.Empty(t, hook.Entries)
}

func TestOrderRepair_RunTicks(t *testing.T) {
	log, _ := test.NewNullLogger()
	repairer := &fakeRepairer{}
	w := worker.NewOrderRepair(repairer, 5*time.Millisecond, 10, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return repairer.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
