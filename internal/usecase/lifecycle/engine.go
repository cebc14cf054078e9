package lifecycle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

const (
	DefaultContractTopic = "contract.events"
	DefaultOrderTopic    = "order.events"
	DefaultMaxRetries    = 5
)

type Config struct {
	MaxNumberRetries int
	ContractTopic    string
	OrderTopic       string
}

// Engine выполняет операции жизненного цикла контракта и заказа.
// Каждая операция - одна транзакция хранилища.
type Engine struct {
	store       repository.LifecycleStore
	catalog     repository.ServiceCatalog
	attachments repository.AttachmentResolver

	numbers    NumberGenerator
	log        logrus.FieldLogger
	tracer     trace.Tracer
	now        func() time.Time
	maxRetries int
	topics     map[valueobject.AggregateType]string
}

type Option func(*Engine)

func WithNumberGenerator(g NumberGenerator) Option {
	return func(e *Engine) { e.numbers = g }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

func NewEngine(store repository.LifecycleStore, catalog repository.ServiceCatalog, attachments repository.AttachmentResolver, cfg Config, opts ...Option) *Engine {
	if cfg.MaxNumberRetries <= 0 {
		cfg.MaxNumberRetries = DefaultMaxRetries
	}
	if cfg.ContractTopic == "" {
		cfg.ContractTopic = DefaultContractTopic
	}
	if cfg.OrderTopic == "" {
		cfg.OrderTopic = DefaultOrderTopic
	}

	e := &Engine{
		store:       store,
		catalog:     catalog,
		attachments: attachments,
		numbers:     RandomNumbers{},
		log:         logrus.StandardLogger(),
		tracer:      otel.Tracer("freelance-contracts/lifecycle"),
		now:         time.Now,
		maxRetries:  cfg.MaxNumberRetries,
		topics: map[valueobject.AggregateType]string{
			valueobject.AggregateContract: cfg.ContractTopic,
			valueobject.AggregateOrder:    cfg.OrderTopic,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "lifecycle."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperror.CodeOf(err)))
	}
	span.End()
}

func actorAttrs(actor entity.Actor) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("actor.id", actor.ID.String()),
		attribute.String("actor.role", string(actor.Role)),
	}
}

// record дописывает событие в журнал и ставит его в очередь на публикацию.
func (e *Engine) record(ctx context.Context, tx repository.LifecycleTx, ev *entity.Event) error {
	if err := tx.AppendEvent(ctx, ev); err != nil {
		return err
	}
	msg, err := entity.NewOutboxMessage(e.topics[ev.AggregateType], ev)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать событие")
	}
	return tx.EnqueueOutbox(ctx, msg)
}

func revisionMeta(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
