package model

// Member is one participant of a conversation. MemberNumber is assigned
// by the registry when the member is added and never reused, even after
// removal. DeletedNumber is 0 for active members; for tombstones it
// holds the removal sequence.
type Member struct {
	Username      string `json:"username"`
	MemberNumber  int64  `json:"member_number"`
	DeletedNumber int64  `json:"deleted_number,omitempty"`
}
