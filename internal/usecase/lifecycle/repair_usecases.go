package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

// RepairOrderSpawn создаёт недостающий заказ для принятого контракта.
// Вызов идемпотентен: если заказ уже есть, только закрывается запись восстановления.
func (e *Engine) RepairOrderSpawn(ctx context.Context, contractID uuid.UUID, actor entity.Actor) (_ *ContractResult, err error) {
	ctx, span := e.startSpan(ctx, "RepairOrderSpawn", append(actorAttrs(actor), attribute.String("contract.id", contractID.String()))...)
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	now := e.now()
	var (
		result   ContractResult
		spawnErr error
	)
	err = e.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		result, spawnErr = ContractResult{}, nil

		c, err := tx.LockContract(ctx, contractID)
		if err != nil {
			return err
		}
		result.Contract = c

		if c.HasOrder() {
			o, err := tx.LockOrder(ctx, *c.OrderID)
			if err != nil {
				return err
			}
			result.Order = o
			return tx.ResolveRepairIntent(ctx, c.ID, o.ID)
		}
		if c.Status != valueobject.ContractStatusActive {
			// Контракт уже закрыт, заказ ему не нужен.
			return tx.ResolveRepairIntent(ctx, c.ID, uuid.Nil)
		}

		spawnErr = tx.Savepoint(ctx, "repair_order", func() error {
			o, err := e.spawnOrder(ctx, tx, c, actor, now)
			if err != nil {
				return err
			}
			result.Order = o
			return nil
		})
		if spawnErr != nil {
			c.OrderID = nil
			return tx.UpsertRepairIntent(ctx, &entity.OrderSpawnIntent{
				ContractID: c.ID,
				LastError:  spawnErr.Error(),
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}

		if err := tx.UpdateContract(ctx, c); err != nil {
			return err
		}
		if err := e.record(ctx, tx, entity.NewContractEvent(c.ID, actor, valueobject.EventContractOrderRepaired,
			"Заказ "+result.Order.Number+" создан повторно по контракту "+c.Number,
			map[string]any{"order_id": result.Order.ID.String()}, now)); err != nil {
			return err
		}
		return tx.ResolveRepairIntent(ctx, c.ID, result.Order.ID)
	})
	if err != nil {
		return nil, err
	}
	if spawnErr != nil {
		return &result, apperror.Wrap(spawnErr, apperror.ErrCodeInconsistent, "заказ по контракту всё ещё не создан")
	}

	fields := logrus.Fields{"contract_id": contractID}
	if result.Order != nil {
		fields["order_id"] = result.Order.ID
	}
	e.log.WithFields(fields).Info("lifecycle: запись восстановления закрыта")
	return &result, nil
}

// RepairPending проходит по открытым записям восстановления. Возвращает число
// контрактов, для которых заказ теперь есть.
func (e *Engine) RepairPending(ctx context.Context, limit int) (int, error) {
	intents, err := e.store.ListPendingRepairs(ctx, limit)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, intent := range intents {
		if ctx.Err() != nil {
			return repaired, ctx.Err()
		}
		res, err := e.RepairOrderSpawn(ctx, intent.ContractID, entity.System)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"contract_id": intent.ContractID,
				"attempts":    intent.Attempts,
				"error":       err.Error(),
			}).Warn("lifecycle: не удалось восстановить заказ")
			continue
		}
		if res.Order != nil {
			repaired++
		}
	}
	return repaired, nil
}
