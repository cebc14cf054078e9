package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

// NumberGenerator выдаёт человекочитаемые номера документов.
// Уникальность обеспечивает индекс хранилища, генератор только предлагает кандидата.
type NumberGenerator interface {
	ContractNumber(now time.Time) (string, error)
	OrderNumber(now time.Time) (string, error)
}

// RandomNumbers: CT-20260314-101500-3FA2C1 и ORD-2026-04718265.
type RandomNumbers struct{}

func (RandomNumbers) ContractNumber(now time.Time) (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("CT-%s-%s", now.UTC().Format("20060102-150405"), strings.ToUpper(hex.EncodeToString(suffix))), nil
}

var orderSuffixSpace = big.NewInt(100_000_000)

func (RandomNumbers) OrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, orderSuffixSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%08d", now.UTC().Year(), n.Int64()), nil
}

func (e *Engine) insertContract(ctx context.Context, tx repository.LifecycleTx, c *entity.Contract) error {
	return e.withUniqueNumber(ctx, tx, "contract_number", func() error {
		number, err := e.numbers.ContractNumber(e.now())
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сгенерировать номер контракта")
		}
		c.Number = number
		return tx.InsertContract(ctx, c)
	})
}

func (e *Engine) insertOrder(ctx context.Context, tx repository.LifecycleTx, o *entity.Order) error {
	return e.withUniqueNumber(ctx, tx, "order_number", func() error {
		number, err := e.numbers.OrderNumber(e.now())
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сгенерировать номер заказа")
		}
		o.Number = number
		return tx.InsertOrder(ctx, o)
	})
}

// withUniqueNumber повторяет вставку при коллизии номера. Каждая попытка идёт под
// своей точкой сохранения, чтобы ошибка уникальности не прерывала транзакцию.
func (e *Engine) withUniqueNumber(ctx context.Context, tx repository.LifecycleTx, kind string, insert func() error) error {
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		err := tx.Savepoint(ctx, kind, insert)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateNumber) {
			return err
		}
		e.log.WithFields(logrus.Fields{
			"kind":    kind,
			"attempt": attempt,
		}).Warn("lifecycle: номер уже занят, генерируем новый")
	}
	return apperror.New(apperror.ErrCodeNumberGenerationFailed, "не удалось подобрать уникальный номер документа")
}
