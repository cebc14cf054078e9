package persistence_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/db"
	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/domain/repository"
	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-contracts/internal/infrastructure/persistence"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
)

// Интеграционные тесты идут против настоящего PostgreSQL:
// POSTGRES_TEST_DSN=postgres://... go test ./internal/infrastructure/persistence/
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("set POSTGRES_TEST_DSN to run PostgreSQL integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := db.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.RunMigrations(conn))
	return conn
}

func seedService(t *testing.T, conn *sqlx.DB) entity.Service {
	t.Helper()
	s := entity.Service{
		ID:           uuid.New(),
		FreelancerID: uuid.New(),
		Title:        "Лендинг",
		Description:  "Одностраничный сайт",
		Price:        decimal.RequireFromString("500.00"),
		Currency:     "USD",
		DeliveryDays: 5,
		Revisions:    1,
	}
	_, err := conn.Exec(`INSERT INTO services (id, freelancer_id, title, description, price, currency, delivery_days, revisions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.FreelancerID, s.Title, s.Description, s.Price, s.Currency, s.DeliveryDays, s.Revisions)
	require.NoError(t, err)
	return s
}

func TestPostgresLifecycle(t *testing.T) {
	conn := openTestDB(t)
	log, _ := test.NewNullLogger()
	store := persistence.NewLifecycleStore(conn, log)
	service := seedService(t, conn)
	engine := lifecycle.NewEngine(store, persistence.NewServiceCatalog(conn), memory.NewAttachments(),
		lifecycle.Config{}, lifecycle.WithLogger(log))

	ctx := context.Background()
	freelancer := entity.Actor{ID: service.FreelancerID, Role: valueobject.RoleFreelancer, IP: "10.0.0.1"}
	client := entity.Actor{ID: uuid.New(), Role: valueobject.RoleClient, IP: "10.0.0.2"}

	c, err := engine.CreateContract(ctx, freelancer, lifecycle.CreateContractInput{ServiceID: service.ID, ClientID: client.ID})
	require.NoError(t, err)

	accepted, err := engine.AcceptContract(ctx, c.ID, client)
	require.NoError(t, err)
	require.NotNil(t, accepted.Order)
	assert.Equal(t, valueobject.OrderStatusInProgress, accepted.Order.Status)
	orderID := accepted.Order.ID

	_, err = engine.SubmitDelivery(ctx, orderID, freelancer, lifecycle.DeliveryInput{Type: valueobject.DeliverableTypeText, Message: "Готово"})
	require.NoError(t, err)
	_, err = engine.RequestRevision(ctx, orderID, client, "Поправьте шапку")
	require.NoError(t, err)
	delivered, err := engine.SubmitDelivery(ctx, orderID, freelancer, lifecycle.DeliveryInput{
		Type: valueobject.DeliverableTypeLink, Message: "https://example.com/v2", IsRevision: true,
	})
	require.NoError(t, err)
	require.NotNil(t, delivered.Deliverable.RevisionNumber)
	assert.Equal(t, 1, *delivered.Deliverable.RevisionNumber)

	done, err := engine.AcceptDelivery(ctx, orderID, client, delivered.Deliverable.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCompleted, done.Order.Status)

	order, err := engine.GetOrder(ctx, orderID, client)
	require.NoError(t, err)
	assert.Len(t, order.Deliverables, 2)

	events, err := engine.ListOrderEvents(ctx, orderID, client)
	require.NoError(t, err)
	types := make([]valueobject.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []valueobject.EventType{
		valueobject.EventOrderCreated,
		valueobject.EventDeliverySubmitted,
		valueobject.EventRevisionRequested,
		valueobject.EventDeliverySubmitted,
		valueobject.EventDeliveryAccepted,
		valueobject.EventOrderCompleted,
	}, types)

	published := 0
	_, err = store.ProcessOutbox(ctx, 100, func(ctx context.Context, m *entity.OutboxMessage) error {
		published++
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, published, len(events))
}

func TestPostgresVersionCheck(t *testing.T) {
	conn := openTestDB(t)
	log, _ := test.NewNullLogger()
	store := persistence.NewLifecycleStore(conn, log)
	service := seedService(t, conn)
	engine := lifecycle.NewEngine(store, persistence.NewServiceCatalog(conn), memory.NewAttachments(), lifecycle.Config{})

	ctx := context.Background()
	freelancer := entity.Actor{ID: service.FreelancerID, Role: valueobject.RoleFreelancer}
	c, err := engine.CreateContract(ctx, freelancer, lifecycle.CreateContractInput{ServiceID: service.ID, ClientID: uuid.New()})
	require.NoError(t, err)

	stale, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	stale.Version--

	err = store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		return tx.UpdateContract(ctx, stale)
	})
	assert.True(t, errors.Is(err, apperror.ErrConcurrentUpdate))
}

func TestPostgresOutboxKeepsFailedMessages(t *testing.T) {
	conn := openTestDB(t)
	log, _ := test.NewNullLogger()
	store := persistence.NewLifecycleStore(conn, log)
	service := seedService(t, conn)
	engine := lifecycle.NewEngine(store, persistence.NewServiceCatalog(conn), memory.NewAttachments(), lifecycle.Config{})

	ctx := context.Background()
	freelancer := entity.Actor{ID: service.FreelancerID, Role: valueobject.RoleFreelancer}
	_, err := engine.CreateContract(ctx, freelancer, lifecycle.CreateContractInput{ServiceID: service.ID, ClientID: uuid.New()})
	require.NoError(t, err)

	brokerDown := errors.New("broker down")
	_, err = store.ProcessOutbox(ctx, 1000, func(ctx context.Context, m *entity.OutboxMessage) error {
		return brokerDown
	})
	assert.ErrorIs(t, err, brokerDown)

	var attempts int
	require.NoError(t, conn.Get(&attempts, `SELECT COALESCE(MAX(attempts), 0) FROM outbox_messages WHERE published_at IS NULL`))
	assert.GreaterOrEqual(t, attempts, 1)
}
