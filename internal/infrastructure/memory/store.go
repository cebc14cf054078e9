package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

// Store - хранилище в памяти процесса. Транзакции выполняются строго по одной,
// поэтому блокировки строк здесь не нужны.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

type state struct {
	contracts       map[uuid.UUID]entity.Contract
	contractNumbers map[string]uuid.UUID
	orders          map[uuid.UUID]entity.Order
	orderNumbers    map[string]uuid.UUID
	deliverables    map[uuid.UUID][]entity.Deliverable
	events          []entity.Event
	outbox          []entity.OutboxMessage
	intents         map[uuid.UUID]entity.OrderSpawnIntent
}

var (
	_ repository.LifecycleStore = (*Store)(nil)
	_ repository.OutboxStore    = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		state: &state{
			contracts:       map[uuid.UUID]entity.Contract{},
			contractNumbers: map[string]uuid.UUID{},
			orders:          map[uuid.UUID]entity.Order{},
			orderNumbers:    map[string]uuid.UUID{},
			deliverables:    map[uuid.UUID][]entity.Deliverable{},
			intents:         map[uuid.UUID]entity.OrderSpawnIntent{},
		},
		now: time.Now,
	}
}

func (s *state) clone() *state {
	out := &state{
		contracts:       make(map[uuid.UUID]entity.Contract, len(s.contracts)),
		contractNumbers: make(map[string]uuid.UUID, len(s.contractNumbers)),
		orders:          make(map[uuid.UUID]entity.Order, len(s.orders)),
		orderNumbers:    make(map[string]uuid.UUID, len(s.orderNumbers)),
		deliverables:    make(map[uuid.UUID][]entity.Deliverable, len(s.deliverables)),
		events:          append([]entity.Event(nil), s.events...),
		outbox:          append([]entity.OutboxMessage(nil), s.outbox...),
		intents:         make(map[uuid.UUID]entity.OrderSpawnIntent, len(s.intents)),
	}
	for k, v := range s.contracts {
		out.contracts[k] = v
	}
	for k, v := range s.contractNumbers {
		out.contractNumbers[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.orderNumbers {
		out.orderNumbers[k] = v
	}
	for k, v := range s.deliverables {
		out.deliverables[k] = append([]entity.Deliverable(nil), v...)
	}
	for k, v := range s.intents {
		out.intents[k] = v
	}
	return out
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.LifecycleTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *Store) GetContract(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.contracts[id]
	if !ok {
		return nil, apperror.ErrContractNotFound
	}
	return &c, nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.orders[id]
	if !ok {
		return nil, apperror.ErrOrderNotFound
	}
	return &o, nil
}

func (s *Store) ListDeliverables(ctx context.Context, orderID uuid.UUID) ([]entity.Deliverable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.Deliverable(nil), s.state.deliverables[orderID]...), nil
}

func (s *Store) ListEvents(ctx context.Context, aggregate valueobject.AggregateType, id uuid.UUID) ([]entity.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.Event
	for _, e := range s.state.events {
		if e.AggregateType == aggregate && e.AggregateID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListPendingRepairs(ctx context.Context, limit int) ([]entity.OrderSpawnIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.OrderSpawnIntent
	for _, intent := range s.state.intents {
		if intent.ResolvedAt == nil {
			out = append(out, intent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ProcessOutbox отдаёт сообщения по порядку записи. fn вызывается без удержания блокировки.
func (s *Store) ProcessOutbox(ctx context.Context, limit int, fn func(ctx context.Context, m *entity.OutboxMessage) error) (int, error) {
	s.mu.RLock()
	var batch []entity.OutboxMessage
	for _, m := range s.state.outbox {
		if m.PublishedAt != nil {
			continue
		}
		batch = append(batch, m)
		if limit > 0 && len(batch) == limit {
			break
		}
	}
	s.mu.RUnlock()

	published := 0
	for i := range batch {
		m := batch[i]
		err := fn(ctx, &m)

		s.mu.Lock()
		for j := range s.state.outbox {
			if s.state.outbox[j].ID != m.ID {
				continue
			}
			if err != nil {
				msg := err.Error()
				s.state.outbox[j].Attempts++
				s.state.outbox[j].LastError = &msg
			} else {
				stamp := s.now()
				s.state.outbox[j].PublishedAt = &stamp
			}
		}
		s.mu.Unlock()

		if err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

// PendingOutbox возвращает число неопубликованных сообщений.
func (s *Store) PendingOutbox() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.state.outbox {
		if m.PublishedAt == nil {
			n++
		}
	}
	return n
}
