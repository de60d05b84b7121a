package model

// LogSnapshot is the full contents of one per-day message log as
// transferred to a subscribing client.
type LogSnapshot struct {
	Date              Date      `json:"date"`
	Messages          []Message `json:"messages"`
	LastMessageNumber int64     `json:"last_message_number"`
}

// Snapshot is the server->client value object sent once at subscribe
// time. The client mirror is built from it and thereafter advanced
// only by deltas.
type Snapshot struct {
	ConversationNumber int64         `json:"conversation_number"`
	Name               string        `json:"name,omitempty"`
	DateCreated        Date          `json:"date_created"`
	Members            []Member      `json:"members"`
	MessageLogs        []LogSnapshot `json:"message_logs"`
	LastMemberNumber   int64         `json:"last_member_number"`
	LastDeletedNumber  int64         `json:"last_deleted_number"`
}

// DeltaQuery is the client->server polled request: "everything after
// these cursors". Message deltas are date-scoped.
type DeltaQuery struct {
	ConversationNumber      int64  `json:"conversation_number"`
	Date                    Date   `json:"date"`
	LastMessageNumber       int64  `json:"last_message_number"`
	LastMemberNumber        int64  `json:"last_member_number"`
	LastDeletedMemberNumber int64  `json:"last_deleted_member_number"`
	ActingUsername          string `json:"acting_username,omitempty"`
}

// Delta is the server response to a DeltaQuery; any list may be empty.
type Delta struct {
	ConversationNumber int64     `json:"conversation_number"`
	Name               string    `json:"name,omitempty"`
	NewMessages        []Message `json:"new_messages,omitempty"`
	NewMembers         []Member  `json:"new_members,omitempty"`
	RemovedMembers     []Member  `json:"removed_members,omitempty"`
}

func (d *Delta) Empty() bool {
	return len(d.NewMessages) == 0 && len(d.NewMembers) == 0 && len(d.RemovedMembers) == 0
}
