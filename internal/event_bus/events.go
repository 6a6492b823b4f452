package event_bus

// Events published on the application bus. Payload types are documented next
// to each constant; subscribers use SubscribeTyped to receive them safely.
const (
	// TransactionCreated carries a transaction.Transaction after a successful write.
	TransactionCreated EventType = "transaction.created"
	// TransactionUpdated carries a transaction.Transaction after an owner edit.
	TransactionUpdated EventType = "transaction.updated"
)
