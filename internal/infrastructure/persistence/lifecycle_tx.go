package persistence

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/repository/common"
)

type pgTx struct {
	tx *sqlx.Tx
}

var _ repository.LifecycleTx = (*pgTx)(nil)

func (t *pgTx) LockContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	row, err := common.GetOne[contractRow](ctx, t.tx, apperror.ErrContractNotFound,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, dbError("lock contract", err)
	}
	return row.toEntity(), nil
}

func (t *pgTx) LockOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	row, err := common.GetOne[orderRow](ctx, t.tx, apperror.ErrOrderNotFound,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, dbError("lock order", err)
	}
	return row.toEntity(), nil
}

func (t *pgTx) InsertContract(ctx context.Context, c *entity.Contract) error {
	row := contractRowOf(c)
	row.Version = 1
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (:id, :contract_number, :service_id, :service_title, :service_description, :service_price,
			:service_currency, :client_id, :freelancer_id, :conversation_id, :scope_of_work, :cancellation_policy,
			:price, :currency, :delivery_days, :revisions_included, :status,
			:freelancer_accepted_at, :freelancer_accepted_ip, :client_accepted_at, :client_accepted_ip,
			:rejected_at, :rejected_by, :rejection_reason, :cancelled_at, :cancelled_by, :cancellation_reason,
			:order_id, :version, :created_at, :updated_at)`, row)
	if err != nil {
		if common.IsUniqueViolation(err, "contracts_number_key") {
			return repository.ErrDuplicateNumber
		}
		return dbError("insert contract", err)
	}
	c.Version = 1
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *entity.Order) error {
	row := orderRowOf(o)
	row.Version = 1
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (:id, :order_number, :contract_id, :service_id, :client_id, :freelancer_id, :conversation_id,
			:status, :price, :currency, :delivery_days, :revisions_included, :revisions_used, :delivery_date,
			:cancelled_at, :cancelled_by, :cancellation_reason, :completed_at, :dispute_id, :status_before_dispute,
			:version, :created_at, :updated_at)`, row)
	if err != nil {
		if common.IsUniqueViolation(err, "orders_number_key") {
			return repository.ErrDuplicateNumber
		}
		if common.IsUniqueViolation(err, "orders_contract_key") {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "у контракта уже есть заказ")
		}
		return dbError("insert order", err)
	}
	o.Version = 1
	return nil
}

func (t *pgTx) UpdateContract(ctx context.Context, c *entity.Contract) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE contracts SET
			status = :status,
			client_accepted_at = :client_accepted_at,
			client_accepted_ip = :client_accepted_ip,
			rejected_at = :rejected_at,
			rejected_by = :rejected_by,
			rejection_reason = :rejection_reason,
			cancelled_at = :cancelled_at,
			cancelled_by = :cancelled_by,
			cancellation_reason = :cancellation_reason,
			order_id = :order_id,
			updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version`, contractRowOf(c))
	if err != nil {
		return dbError("update contract", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return dbError("update contract", err)
	} else if n == 0 {
		return apperror.ErrConcurrentUpdate
	}
	c.Version++
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *entity.Order) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE orders SET
			status = :status,
			revisions_used = :revisions_used,
			delivery_date = :delivery_date,
			cancelled_at = :cancelled_at,
			cancelled_by = :cancelled_by,
			cancellation_reason = :cancellation_reason,
			completed_at = :completed_at,
			dispute_id = :dispute_id,
			status_before_dispute = :status_before_dispute,
			updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version`, orderRowOf(o))
	if err != nil {
		return dbError("update order", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return dbError("update order", err)
	} else if n == 0 {
		return apperror.ErrConcurrentUpdate
	}
	o.Version++
	return nil
}

func (t *pgTx) GetDeliverable(ctx context.Context, orderID, id uuid.UUID) (*entity.Deliverable, error) {
	row, err := common.GetOne[deliverableRow](ctx, t.tx, apperror.ErrDeliverableNotFound,
		`SELECT `+deliverableColumns+` FROM order_deliverables WHERE id = $1 AND order_id = $2 FOR UPDATE`, id, orderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, dbError("get deliverable", err)
	}
	d := row.toEntity()
	return &d, nil
}

func (t *pgTx) InsertDeliverable(ctx context.Context, d *entity.Deliverable) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_deliverables (`+deliverableColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.OrderID, string(d.Type), d.FileRef, d.MimeType, d.Message, d.IsRevision, d.RevisionNumber,
		d.DeliveredAt, d.AcceptedAt)
	if err != nil {
		if common.IsUniqueViolation(err, "idx_order_deliverables_revision") {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "правка с таким номером уже сдана")
		}
		return dbError("insert deliverable", err)
	}
	return nil
}

func (t *pgTx) UpdateDeliverable(ctx context.Context, d *entity.Deliverable) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE order_deliverables SET accepted_at = $3 WHERE id = $1 AND order_id = $2`,
		d.ID, d.OrderID, d.AcceptedAt)
	if err != nil {
		return dbError("update deliverable", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.ErrDeliverableNotFound
	}
	return nil
}

func (t *pgTx) CountRevisionDeliverables(ctx context.Context, orderID uuid.UUID) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM order_deliverables WHERE order_id = $1 AND is_revision`, orderID)
	if err != nil {
		return 0, dbError("count revisions", err)
	}
	return n, nil
}

func (t *pgTx) AppendEvent(ctx context.Context, e *entity.Event) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать метаданные события")
		}
		metadata = raw
	}

	table, column := eventTable(e.AggregateType)
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO `+table+` (id, `+column+`, actor_id, event_type, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.AggregateID, e.ActorID, string(e.Type), e.Description, metadata, e.CreatedAt)
	if err != nil {
		return dbError("append event", err)
	}
	return nil
}

func (t *pgTx) EnqueueOutbox(ctx context.Context, m *entity.OutboxMessage) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (id, topic, message_key, payload, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)`,
		m.ID, m.Topic, m.Key, m.Payload, m.CreatedAt)
	if err != nil {
		return dbError("enqueue outbox", err)
	}
	return nil
}

func (t *pgTx) UpsertRepairIntent(ctx context.Context, intent *entity.OrderSpawnIntent) error {
	var row intentRow
	err := t.tx.GetContext(ctx, &row, `
		INSERT INTO order_spawn_intents (contract_id, attempts, last_error, created_at, updated_at)
		VALUES ($1, 1, $2, $3, $3)
		ON CONFLICT (contract_id) DO UPDATE SET
			attempts = order_spawn_intents.attempts + 1,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at,
			resolved_at = NULL
		RETURNING contract_id, attempts, last_error, order_id, created_at, updated_at, resolved_at`,
		intent.ContractID, intent.LastError, intent.UpdatedAt)
	if err != nil {
		return dbError("upsert repair intent", err)
	}
	*intent = row.toEntity()
	return nil
}

func (t *pgTx) ResolveRepairIntent(ctx context.Context, contractID, orderID uuid.UUID) error {
	var ref *uuid.UUID
	if orderID != uuid.Nil {
		ref = &orderID
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE order_spawn_intents
		SET resolved_at = NOW(), updated_at = NOW(), order_id = COALESCE($2, order_id)
		WHERE contract_id = $1 AND resolved_at IS NULL`, contractID, ref)
	if err != nil {
		return dbError("resolve repair intent", err)
	}
	return nil
}

func (t *pgTx) Savepoint(ctx context.Context, name string, fn func() error) error {
	return common.WithSavepoint(ctx, t.tx, name, fn)
}
