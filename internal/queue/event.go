package queue

type EventType string

const (
	StakedEventType        EventType = "STAKED"
	ClaimedEventType       EventType = "CLAIMED"
	UnstakedEventType      EventType = "UNSTAKED"
	ConfigUpdatedEventType EventType = "CONFIG_UPDATED"
)

// StakeEvent is published once the operation that produced it has committed
type StakeEvent struct {
	EventType EventType `json:"event_type"`
	Owner     string    `json:"owner"`
	Asset     string    `json:"asset,omitempty"`
	Amount    uint64    `json:"amount"`
	Timestamp int64     `json:"timestamp"`
}

func NewStakedEvent(owner, asset string, timestamp int64) StakeEvent {
	return StakeEvent{
		EventType: StakedEventType,
		Owner:     owner,
		Asset:     asset,
		Timestamp: timestamp,
	}
}

func NewClaimedEvent(owner, asset string, amount uint64, timestamp int64) StakeEvent {
	return StakeEvent{
		EventType: ClaimedEventType,
		Owner:     owner,
		Asset:     asset,
		Amount:    amount,
		Timestamp: timestamp,
	}
}

func NewUnstakedEvent(owner, asset string, amount uint64, timestamp int64) StakeEvent {
	return StakeEvent{
		EventType: UnstakedEventType,
		Owner:     owner,
		Asset:     asset,
		Amount:    amount,
		Timestamp: timestamp,
	}
}

// NewConfigUpdatedEvent carries the new reward rate in Amount
func NewConfigUpdatedEvent(authority string, rewardRate uint64, timestamp int64) StakeEvent {
	return StakeEvent{
		EventType: ConfigUpdatedEventType,
		Owner:     authority,
		Amount:    rewardRate,
		Timestamp: timestamp,
	}
}
