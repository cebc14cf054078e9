package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/repository/common"
)

// LifecycleStore хранит контракты, заказы и журнал в PostgreSQL.
type LifecycleStore struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

var (
	_ repository.LifecycleStore = (*LifecycleStore)(nil)
	_ repository.OutboxStore    = (*LifecycleStore)(nil)
)

func NewLifecycleStore(db *sqlx.DB, log logrus.FieldLogger) *LifecycleStore {
	return &LifecycleStore{db: db, log: log}
}

func dbError(op string, err error) error {
	return apperror.Wrap(fmt.Errorf("lifecycle repository: %s %w", op, err), apperror.ErrCodeDatabaseError, "ошибка базы данных")
}

func (s *LifecycleStore) WithinTx(ctx context.Context, fn func(tx repository.LifecycleTx) error) error {
	return common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (s *LifecycleStore) GetContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	row, err := common.GetOne[contractRow](ctx, s.db, apperror.ErrContractNotFound,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, dbError("get contract", err)
	}
	return row.toEntity(), nil
}

func (s *LifecycleStore) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	row, err := common.GetOne[orderRow](ctx, s.db, apperror.ErrOrderNotFound,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, dbError("get order", err)
	}
	return row.toEntity(), nil
}

func (s *LifecycleStore) ListDeliverables(ctx context.Context, orderID uuid.UUID) ([]entity.Deliverable, error) {
	var rows []deliverableRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+deliverableColumns+` FROM order_deliverables WHERE order_id = $1 ORDER BY delivered_at, id`, orderID)
	if err != nil {
		return nil, dbError("list deliverables", err)
	}
	out := make([]entity.Deliverable, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}

// ListEvents возвращает журнал агрегата в порядке записи.
func (s *LifecycleStore) ListEvents(ctx context.Context, aggregate valueobject.AggregateType, id uuid.UUID) ([]entity.Event, error) {
	table, column := eventTable(aggregate)
	query := fmt.Sprintf(`SELECT id, %[2]s AS aggregate_id, actor_id, event_type, description, metadata, created_at
		FROM %[1]s WHERE %[2]s = $1 ORDER BY seq`, table, column)

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, dbError("list events", err)
	}
	out := make([]entity.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toEntity(aggregate)
		if err != nil {
			return nil, dbError("decode event metadata", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *LifecycleStore) ListPendingRepairs(ctx context.Context, limit int) ([]entity.OrderSpawnIntent, error) {
	var rows []intentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT contract_id, attempts, last_error, order_id, created_at, updated_at, resolved_at
		FROM order_spawn_intents
		WHERE resolved_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, dbError("list pending repairs", err)
	}
	out := make([]entity.OrderSpawnIntent, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}

// ProcessOutbox забирает пачку неопубликованных сообщений под SKIP LOCKED,
// поэтому несколько экземпляров сервиса не публикуют одно сообщение дважды.
// Отметка о неудачной попытке фиксируется вместе с уже опубликованными.
func (s *LifecycleStore) ProcessOutbox(ctx context.Context, limit int, fn func(ctx context.Context, m *entity.OutboxMessage) error) (int, error) {
	published := 0
	var publishErr error

	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		var rows []outboxRow
		err := tx.SelectContext(ctx, &rows, `
			SELECT id, topic, message_key, payload, attempts, last_error, created_at, published_at
			FROM outbox_messages
			WHERE published_at IS NULL
			ORDER BY seq
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return dbError("select outbox", err)
		}

		for i := range rows {
			m := rows[i].toEntity()
			if err := fn(ctx, m); err != nil {
				publishErr = err
				if _, uerr := tx.ExecContext(ctx,
					`UPDATE outbox_messages SET attempts = attempts + 1, last_error = $2 WHERE id = $1`,
					m.ID, err.Error()); uerr != nil {
					return dbError("mark outbox attempt", uerr)
				}
				return nil
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE outbox_messages SET published_at = NOW() WHERE id = $1`, m.ID); err != nil {
				return dbError("mark outbox published", err)
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		s.log.WithField("published", published).Debug("outbox: сообщения опубликованы")
	}
	return published, publishErr
}
