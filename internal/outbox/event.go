package outbox

// Event is the domain event envelope written to the outbox table in the
// same transaction as the state change it describes. The Kafka topic name
// equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventBookingCreated   = "booking.created.v1"
	EventBookingCancelled = "booking.cancelled.v1"
	EventBookingCompleted = "booking.completed.v1"
)
