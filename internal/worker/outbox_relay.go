package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/events"
)

const (
	DefaultOutboxInterval = 2 * time.Second
	DefaultOutboxBatch    = 100
)

// OutboxRelay переносит события из outbox в шину.
type OutboxRelay struct {
	store     repository.OutboxStore
	publisher events.Publisher
	interval  time.Duration
	batch     int
	log       logrus.FieldLogger
}

func NewOutboxRelay(store repository.OutboxStore, publisher events.Publisher, interval time.Duration, batch int, log logrus.FieldLogger) *OutboxRelay {
	if interval <= 0 {
		interval = DefaultOutboxInterval
	}
	if batch <= 0 {
		batch = DefaultOutboxBatch
	}
	return &OutboxRelay{store: store, publisher: publisher, interval: interval, batch: batch, log: log}
}

// RunOnce публикует одну пачку. Первая неудача останавливает пачку,
// чтобы не нарушить порядок событий агрегата.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	return r.store.ProcessOutbox(ctx, r.batch, func(ctx context.Context, m *entity.OutboxMessage) error {
		return r.publisher.Publish(ctx, m)
	})
}

// Run крутит RunOnce до отмены ctx. Полная пачка запускает следующую без ожидания.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.WithField("interval", r.interval).Info("outbox: relay запущен")
	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.log.WithError(err).Warn("outbox: публикация прервана, повтор на следующем тике")
		}
		if err == nil && n == r.batch && ctx.Err() == nil {
			continue
		}

		select {
		case <-ctx.Done():
			r.log.Info("outbox: relay остановлен")
			return
		case <-ticker.C:
		}
	}
}
