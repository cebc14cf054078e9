package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-contracts/internal/worker"
)

type recordingPublisher struct {
	mu     sync.Mutex
	sent   []uuid.UUID
	failOn map[uuid.UUID]error
}

func (p *recordingPublisher) Publish(ctx context.Context, m *entity.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failOn[m.ID]; ok {
		return err
	}
	p.sent = append(p.sent, m.ID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Sent() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uuid.UUID(nil), p.sent...)
}

func enqueue(t *testing.T, store *memory.Store, n int) []uuid.UUID {
	t.Helper()
	orderID := uuid.New()
	ids := make([]uuid.UUID, 0, n)
	err := store.WithinTx(context.Background(), func(tx repository.LifecycleTx) error {
		for i := 0; i < n; i++ {
			ev := entity.NewOrderEvent(orderID, entity.System, valueobject.EventOrderCreated, "событие", nil, time.Now())
			m, err := entity.NewOutboxMessage("order.events", ev)
			if err != nil {
				return err
			}
			if err := tx.EnqueueOutbox(context.Background(), m); err != nil {
				return err
			}
			ids = append(ids, m.ID)
		}
		return nil
	})
	require.NoError(t, err)
	return ids
}

func TestOutboxRelay_PublishesInOrder(t *testing.T) {
	store := memory.NewStore()
	ids := enqueue(t, store, 5)
	pub := &recordingPublisher{}
	log, _ := test.NewNullLogger()

	relay := worker.NewOutboxRelay(store, pub, time.Millisecond, 3, log)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, ids, pub.Sent())
	assert.Zero(t, store.PendingOutbox())
}

func TestOutboxRelay_StopsOnFailure(t *testing.T) {
	store := memory.NewStore()
	ids := enqueue(t, store, 3)
	brokerDown := errors.New("broker down")
	pub := &recordingPublisher{failOn: map[uuid.UUID]error{ids[1]: brokerDown}}
	log, _ := test.NewNullLogger()

	relay := worker.NewOutboxRelay(store, pub, time.Millisecond, 10, log)
	n, err := relay.RunOnce(context.Background())

	assert.ErrorIs(t, err, brokerDown)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{ids[0]}, pub.Sent())
	assert.Equal(t, 2, store.PendingOutbox())

	delete(pub.failOn, ids[1])
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, ids, pub.Sent())
}

func TestOutboxRelay_RunDrainsUntilCancelled(t *testing.T) {
	store := memory.NewStore()
	enqueue(t, store, 7)
	pub := &recordingPublisher{}
	log, _ := test.NewNullLogger()
	relay := worker.NewOutboxRelay(store, pub, 5*time.Millisecond, 2, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.PendingOutbox() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
	assert.Len(t, pub.Sent(), 7)
}
