package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

func TestNewContract_DefaultsFromService(t *testing.T) {
	svc := testService()
	freelancer := Actor{ID: svc.FreelancerID, Role: valueobject.RoleFreelancer, IP: "10.0.0.1"}

	c, err := NewContract(svc, freelancer, ContractTerms{ClientID: uuid.New()}, "CT-1", testNow)
	require.NoError(t, err)

	assert.Equal(t, valueobject.ContractStatusPendingAcceptance, c.Status)
	assert.True(t, c.Price.Amount.Equal(svc.Price))
	assert.Equal(t, svc.DeliveryDays, c.DeliveryDays)
	assert.Equal(t, svc.Revisions, c.RevisionsIncluded)
	assert.Equal(t, svc.Title, c.ServiceTitle)
	require.NotNil(t, c.FreelancerAcceptedIP)
	assert.Equal(t, "10.0.0.1", *c.FreelancerAcceptedIP)
}

func TestNewContract_InvalidTerms(t *testing.T) {
	svc := testService()
	freelancer := Actor{ID: svc.FreelancerID, Role: valueobject.RoleFreelancer}
	zero := decimal.Zero
	days := 0
	revisions := -1

	cases := []ContractTerms{
		{ClientID: uuid.New(), Price: &zero},
		{ClientID: uuid.New(), DeliveryDays: &days},
		{ClientID: uuid.New(), RevisionsIncluded: &revisions},
		{ClientID: svc.FreelancerID},
	}
	for _, terms := range cases {
		_, err := NewContract(svc, freelancer, terms, "CT-1", testNow)
		assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidTerms), "%+v", terms)
	}
}

func TestNewContract_OnlyServiceFreelancer(t *testing.T) {
	svc := testService()
	other := Actor{ID: uuid.New(), Role: valueobject.RoleFreelancer}

	_, err := NewContract(svc, other, ContractTerms{ClientID: uuid.New()}, "CT-1", testNow)
	assert.True(t, apperror.IsForbidden(err))

	admin := Actor{ID: uuid.New(), Role: valueobject.RoleAdmin}
	_, err = NewContract(svc, admin, ContractTerms{ClientID: uuid.New()}, "CT-1", testNow)
	assert.NoError(t, err)
}

func TestContract_AcceptOnce(t *testing.T) {
	svc := testService()
	client := Actor{ID: uuid.New(), Role: valueobject.RoleClient, IP: "192.168.1.5"}
	c, err := NewContract(svc, Actor{ID: svc.FreelancerID, Role: valueobject.RoleFreelancer}, ContractTerms{ClientID: client.ID}, "CT-1", testNow)
	require.NoError(t, err)

	err = c.Accept(Actor{ID: svc.FreelancerID, Role: valueobject.RoleFreelancer}, testNow)
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, c.Accept(client, testNow))
	assert.Equal(t, valueobject.ContractStatusActive, c.Status)
	require.NotNil(t, c.ClientAcceptedIP)
	assert.Equal(t, "192.168.1.5", *c.ClientAcceptedIP)

	err = c.Accept(client, testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))
}

func TestContract_Reject(t *testing.T) {
	svc := testService()
	client := Actor{ID: uuid.New(), Role: valueobject.RoleClient}
	c, err := NewContract(svc, Actor{ID: svc.FreelancerID, Role: valueobject.RoleFreelancer}, ContractTerms{ClientID: client.ID}, "CT-1", testNow)
	require.NoError(t, err)

	err = c.Reject(client, "", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidTerms))

	require.NoError(t, c.Reject(client, "дорого", testNow))
	assert.Equal(t, valueobject.ContractStatusRejected, c.Status)
	assert.Equal(t, "дорого", *c.RejectionReason)

	err = c.Cancel(client, "", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))
}

func TestContract_RejectChecksStateBeforeReason(t *testing.T) {
	svc := testService()
	client := Actor{ID: uuid.New(), Role: valueobject.RoleClient}
	c, err := NewContract(svc, Actor{ID: svc.FreelancerID, Role: valueobject.RoleFreelancer}, ContractTerms{ClientID: client.ID}, "CT-1", testNow)
	require.NoError(t, err)

	err = c.Reject(Actor{ID: uuid.New(), Role: valueobject.RoleClient}, "", testNow)
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, c.Accept(client, testNow))
	err = c.Reject(client, "", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidState))
	assert.Equal(t, valueobject.ContractStatusActive, c.Status)
}

func TestContract_FollowOrder(t *testing.T) {
	o, client, _ := activeOrder(t)
	c := &Contract{ID: o.ContractID, Status: valueobject.ContractStatusActive}

	require.NoError(t, o.Cancel(client, "не нужно", testNow))
	assert.True(t, c.FollowOrder(o, client, "не нужно", testNow))
	assert.Equal(t, valueobject.ContractStatusCancelled, c.Status)
	assert.False(t, c.FollowOrder(o, client, "", testNow))
}
