package valueobject

type AggregateType string

const (
	AggregateContract AggregateType = "contract"
	AggregateOrder    AggregateType = "order"
)

type EventType string

const (
	EventContractCreated          EventType = "CONTRACT_CREATED"
	EventContractAccepted         EventType = "CONTRACT_ACCEPTED"
	EventContractRejected         EventType = "CONTRACT_REJECTED"
	EventContractCancelled        EventType = "CONTRACT_CANCELLED"
	EventContractOrderSpawnFailed EventType = "CONTRACT_ORDER_SPAWN_FAILED"
	EventContractOrderRepaired    EventType = "CONTRACT_ORDER_REPAIRED"

	EventOrderCreated      EventType = "ORDER_CREATED"
	EventOrderAccepted     EventType = "ORDER_ACCEPTED"
	EventDeliverySubmitted EventType = "DELIVERY_SUBMITTED"
	EventDeliveryAccepted  EventType = "DELIVERY_ACCEPTED"
	EventOrderCompleted    EventType = "ORDER_COMPLETED"
	EventRevisionRequested EventType = "REVISION_REQUESTED"
	EventOrderCancelled    EventType = "ORDER_CANCELLED"
	EventDisputeOpened     EventType = "DISPUTE_OPENED"
	EventDisputeResolved   EventType = "DISPUTE_RESOLVED"
)
