package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testService() Service {
	return Service{
		ID:           uuid.New(),
		FreelancerID: uuid.New(),
		Title:        "Логотип",
		Description:  "Векторный логотип",
		Price:        decimal.NewFromInt(100),
		Currency:     "USD",
		DeliveryDays: 3,
		Revisions:    1,
	}
}

func activeOrder(t *testing.T) (*Order, Actor, Actor) {
	t.Helper()
	svc := testService()
	client := Actor{ID: uuid.New(), Role: valueobject.RoleClient}
	freelancer := Actor{ID: svc.FreelancerID, Role: valueobject.RoleFreelancer}

	c, err := NewContract(svc, freelancer, ContractTerms{ClientID: client.ID}, "CT-1", testNow)
	require.NoError(t, err)
	require.NoError(t, c.Accept(client, testNow))

	return NewOrderFromContract(c, "ORD-1", valueobject.OrderStatusInProgress, testNow), client, freelancer
}

func TestNewOrderFromContract_SnapshotsTerms(t *testing.T) {
	o, _, _ := activeOrder(t)

	assert.Equal(t, valueobject.OrderStatusInProgress, o.Status)
	assert.Equal(t, 1, o.RevisionsIncluded)
	assert.Equal(t, 0, o.RevisionsUsed)
	assert.Equal(t, testNow.AddDate(0, 0, 3), o.DeliveryDate)
	assert.True(t, o.Price.Amount.Equal(decimal.NewFromInt(100)))
}

func TestOrder_SubmitDelivery_OnlyFreelancer(t *testing.T) {
	o, client, _ := activeOrder(t)

	_, err := o.SubmitDelivery(client, false, 0, testNow)
	assert.True(t, apperror.IsForbidden(err))
	assert.Equal(t, valueobject.OrderStatusInProgress, o.Status)
}

func TestOrder_RevisionCycle(t *testing.T) {
	o, client, freelancer := activeOrder(t)

	n, err := o.SubmitDelivery(freelancer, false, 0, testNow)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, valueobject.OrderStatusDelivered, o.Status)

	require.NoError(t, o.RequestRevision(client, "поправьте цвета", testNow))
	assert.Equal(t, valueobject.OrderStatusRevisionRequested, o.Status)

	_, err = o.SubmitDelivery(freelancer, false, 0, testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))

	n, err = o.SubmitDelivery(freelancer, true, 0, testNow)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 1, *n)
	assert.Equal(t, 1, o.RevisionsUsed)

	err = o.RequestRevision(client, "ещё раз", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeNoRevisionsAvailable))
	assert.Equal(t, valueobject.OrderStatusDelivered, o.Status)
}

func TestOrder_RevisionCeilingCheckedBeforeMutation(t *testing.T) {
	o, _, freelancer := activeOrder(t)
	o.RevisionsIncluded = 0

	_, err := o.SubmitDelivery(freelancer, true, 0, testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeRevisionsExceeded))
	assert.Equal(t, valueobject.OrderStatusInProgress, o.Status)
	assert.Equal(t, 0, o.RevisionsUsed)
}

func TestOrder_RequestRevisionNeedsReason(t *testing.T) {
	o, client, freelancer := activeOrder(t)
	_, err := o.SubmitDelivery(freelancer, false, 0, testNow)
	require.NoError(t, err)

	err = o.RequestRevision(client, "   ", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidTerms))
}

func TestOrder_RequestRevisionChecksStateBeforeReason(t *testing.T) {
	o, client, freelancer := activeOrder(t)
	_, err := o.SubmitDelivery(freelancer, false, 0, testNow)
	require.NoError(t, err)
	_, err = o.EnterDispute(uuid.New(), testNow)
	require.NoError(t, err)

	err = o.RequestRevision(client, "", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeOrderDisputed))

	err = o.RequestRevision(freelancer, "", testNow)
	assert.True(t, apperror.IsForbidden(err))

	fresh, client, _ := activeOrder(t)
	err = fresh.RequestRevision(client, "", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))
}

func TestOrder_AcceptDelivery(t *testing.T) {
	o, client, freelancer := activeOrder(t)
	_, err := o.SubmitDelivery(freelancer, false, 0, testNow)
	require.NoError(t, err)

	foreign := &Deliverable{ID: uuid.New(), OrderID: uuid.New()}
	err = o.AcceptDelivery(client, foreign, testNow)
	assert.True(t, apperror.IsNotFound(err))

	d := NewDeliverable(o.ID, DeliveryDraft{Type: valueobject.DeliverableTypeText, Message: "готово"}, nil, nil, testNow)
	require.NoError(t, o.AcceptDelivery(client, d, testNow))
	assert.Equal(t, valueobject.OrderStatusCompleted, o.Status)
	assert.NotNil(t, o.CompletedAt)
	assert.NotNil(t, d.AcceptedAt)
}

func TestOrder_CancelTerminalFails(t *testing.T) {
	o, client, _ := activeOrder(t)
	require.NoError(t, o.Cancel(client, "передумал", testNow))
	assert.Equal(t, valueobject.OrderStatusCancelled, o.Status)
	require.NotNil(t, o.CancelledBy)
	assert.Equal(t, client.ID, *o.CancelledBy)

	err := o.Cancel(client, "ещё раз", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))
}

func TestOrder_CancelByStranger(t *testing.T) {
	o, _, _ := activeOrder(t)
	stranger := Actor{ID: uuid.New(), Role: valueobject.RoleClient}

	err := o.Cancel(stranger, "", testNow)
	assert.True(t, apperror.IsForbidden(err))

	admin := Actor{ID: uuid.New(), Role: valueobject.RoleAdmin}
	assert.NoError(t, o.Cancel(admin, "", testNow))
}

func TestOrder_DisputeFreezesLifecycle(t *testing.T) {
	o, client, freelancer := activeOrder(t)
	disputeID := uuid.New()

	changed, err := o.EnterDispute(disputeID, testNow)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = o.EnterDispute(disputeID, testNow)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = o.EnterDispute(uuid.New(), testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))

	_, err = o.SubmitDelivery(freelancer, false, 0, testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeOrderDisputed))
	err = o.Cancel(client, "", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeOrderDisputed))

	require.NoError(t, o.ResolveDispute(disputeID, valueobject.DisputeOutcomeNone, nil, testNow))
	assert.Equal(t, valueobject.OrderStatusInProgress, o.Status)
	assert.Nil(t, o.DisputeID)
}

func TestOrder_ResolveDisputeRefund(t *testing.T) {
	o, _, _ := activeOrder(t)
	disputeID := uuid.New()
	_, err := o.EnterDispute(disputeID, testNow)
	require.NoError(t, err)

	err = o.ResolveDispute(uuid.New(), valueobject.DisputeOutcomeRefundClient, nil, testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))

	require.NoError(t, o.ResolveDispute(disputeID, valueobject.DisputeOutcomeRefundClient, nil, testNow))
	assert.Equal(t, valueobject.OrderStatusCancelled, o.Status)
	assert.NotNil(t, o.CancelledAt)
}
