package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultRepairInterval = time.Minute
	DefaultRepairBatch    = 50
)

// Repairer - операция движка, порождающая недостающие заказы.
type Repairer interface {
	RepairPending(ctx context.Context, limit int) (int, error)
}

// OrderRepair периодически чинит контракты, принятые без заказа.
type OrderRepair struct {
	engine   Repairer
	interval time.Duration
	batch    int
	log      logrus.FieldLogger
}

func NewOrderRepair(engine Repairer, interval time.Duration, batch int, log logrus.FieldLogger) *OrderRepair {
	if interval <= 0 {
		interval = DefaultRepairInterval
	}
	if batch <= 0 {
		batch = DefaultRepairBatch
	}
	return &OrderRepair{engine: engine, interval: interval, batch: batch, log: log}
}

func (w *OrderRepair) RunOnce(ctx context.Context) {
	repaired, err := w.engine.RepairPending(ctx, w.batch)
	if err != nil {
		w.log.WithError(err).Error("repair: не удалось обработать очередь восстановления")
		return
	}
	if repaired > 0 {
		w.log.WithField("repaired", repaired).Info("repair: заказы восстановлены")
	}
}

func (w *OrderRepair) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval).Info("repair: задание запущено")
	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			w.log.Info("repair: задание остановлено")
			return
		case <-ticker.C:
		}
	}
}
