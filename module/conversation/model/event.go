package model

// EventType tags a confirmed server-side change pushed to gateways.
type EventType int

const (
	EventMessageAdded EventType = iota + 1
	EventMessageRemoved
	EventMemberAdded
	EventMemberRemoved
	EventConversationRenamed
	EventConversationDeleted
)

func (t EventType) String() string {
	switch t {
	case EventMessageAdded:
		return "message_added"
	case EventMessageRemoved:
		return "message_removed"
	case EventMemberAdded:
		return "member_added"
	case EventMemberRemoved:
		return "member_removed"
	case EventConversationRenamed:
		return "conversation_renamed"
	case EventConversationDeleted:
		return "conversation_deleted"
	default:
		return "unknown"
	}
}

// Event is one confirmed delta, published on the bus after a mutation
// commits and fanned out to subscribed gateway connections.
type Event struct {
	Type               EventType `json:"type"`
	ConversationNumber int64     `json:"conversation_number"`
	Message            *Message  `json:"message,omitempty"`
	Member             *Member   `json:"member,omitempty"`
	Name               string    `json:"name,omitempty"`
}
