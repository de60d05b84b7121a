// Package mirror is the client-side replica of a conversation: built
// once from an authoritative snapshot, advanced only by applying
// confirmed deltas, never by re-deriving state on its own. Each
// applied item is pushed synchronously to registered observers.
//
// Single-writer / multi-reader: only the goroutine applying deltas
// mutates the mirror; UI-facing reads go through the RWMutex.
package mirror

import (
	"sort"
	"sync"

	"CSProject/module/conversation/model"
)

type Mirror struct {
	mu          sync.RWMutex
	number      int64
	name        string
	dateCreated model.Date

	members  map[string]model.Member
	messages map[model.Date][]model.Message
	lastMsg  map[model.Date]int64

	lastMemberNumber  int64
	lastDeletedNumber int64

	// local user's own sends, displayed until the server's delta
	// confirms them
	pending []model.Message

	obsMu     sync.Mutex
	observers map[int64]Observer
	nextObsID int64
}

func NewMirror(snap *model.Snapshot) *Mirror {
	m := &Mirror{
		number:            snap.ConversationNumber,
		name:              snap.Name,
		dateCreated:       snap.DateCreated,
		members:           make(map[string]model.Member, len(snap.Members)),
		messages:          make(map[model.Date][]model.Message, len(snap.MessageLogs)),
		lastMsg:           make(map[model.Date]int64, len(snap.MessageLogs)),
		lastMemberNumber:  snap.LastMemberNumber,
		lastDeletedNumber: snap.LastDeletedNumber,
		observers:         make(map[int64]Observer),
	}
	for _, mem := range snap.Members {
		m.members[mem.Username] = mem
	}
	for _, log := range snap.MessageLogs {
		msgs := make([]model.Message, len(log.Messages))
		copy(msgs, log.Messages)
		m.messages[log.Date] = msgs
		m.lastMsg[log.Date] = log.LastMessageNumber
	}
	return m
}

func (m *Mirror) Number() int64 { return m.number }

func (m *Mirror) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

func (m *Mirror) DateCreated() model.Date { return m.dateCreated }

func (m *Mirror) Members() []model.Member {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Member, 0, len(m.members))
	for _, mem := range m.members {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberNumber < out[j].MemberNumber })
	return out
}

func (m *Mirror) IsMember(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.members[username]
	return ok
}

func (m *Mirror) MessagesOn(date model.Date) []model.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[date]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

// QueryFor builds the next polled delta query for date from the
// mirror's cursors.
func (m *Mirror) QueryFor(date model.Date) model.DeltaQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.DeltaQuery{
		ConversationNumber:      m.number,
		Date:                    date,
		LastMessageNumber:       m.lastMsg[date],
		LastMemberNumber:        m.lastMemberNumber,
		LastDeletedMemberNumber: m.lastDeletedNumber,
	}
}

// AddPending records a locally-sent, not-yet-confirmed message. It is
// visible via Pending until an applied delta carries an equal message.
func (m *Mirror) AddPending(msg model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, msg)
}

func (m *Mirror) Pending() []model.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Message, len(m.pending))
	copy(out, m.pending)
	return out
}

// ApplyDelta patches the mirror with one polled delta and notifies
// observers once per applied item. Items at or below the mirror's
// cursors are skipped, so re-applying an already-seen delta is a
// no-op.
func (m *Mirror) ApplyDelta(d *model.Delta) {
	if d == nil || d.ConversationNumber != m.number {
		return
	}
	m.mu.Lock()
	var changes []Change

	for i := range d.NewMessages {
		msg := d.NewMessages[i]
		date := msg.SentDate()
		if msg.MessageNumber <= m.lastMsg[date] {
			continue
		}
		m.messages[date] = append(m.messages[date], msg)
		m.lastMsg[date] = msg.MessageNumber
		m.dropPending(&msg)
		changes = append(changes, Change{
			ConversationNumber: m.number, Message: &msg,
		})
	}

	for i := range d.NewMembers {
		mem := d.NewMembers[i]
		if mem.MemberNumber <= m.lastMemberNumber {
			continue
		}
		m.members[mem.Username] = mem
		m.lastMemberNumber = mem.MemberNumber
		changes = append(changes, Change{
			ConversationNumber: m.number, Member: &mem,
		})
	}

	for i := range d.RemovedMembers {
		mem := d.RemovedMembers[i]
		if mem.DeletedNumber <= m.lastDeletedNumber {
			continue
		}
		delete(m.members, mem.Username)
		m.lastDeletedNumber = mem.DeletedNumber
		changes = append(changes, Change{
			ConversationNumber: m.number, Member: &mem, Removed: true,
		})
	}

	if d.Name != m.name {
		m.name = d.Name
		changes = append(changes, Change{
			ConversationNumber: m.number, Name: d.Name, Renamed: true,
		})
	}
	m.mu.Unlock()

	m.notify(changes)
}

// ApplyEvent patches the mirror with one pushed server event. The
// pushed stream carries kinds the polled response cannot express
// (message removal).
func (m *Mirror) ApplyEvent(e *model.Event) {
	if e == nil || e.ConversationNumber != m.number {
		return
	}
	switch e.Type {
	case model.EventMessageAdded:
		if e.Message == nil {
			return
		}
		m.ApplyDelta(&model.Delta{
			ConversationNumber: m.number,
			Name:               m.Name(),
			NewMessages:        []model.Message{*e.Message},
		})
	case model.EventMemberAdded:
		if e.Member == nil {
			return
		}
		m.ApplyDelta(&model.Delta{
			ConversationNumber: m.number,
			Name:               m.Name(),
			NewMembers:         []model.Member{*e.Member},
		})
	case model.EventMemberRemoved:
		if e.Member == nil {
			return
		}
		m.ApplyDelta(&model.Delta{
			ConversationNumber: m.number,
			Name:               m.Name(),
			RemovedMembers:     []model.Member{*e.Member},
		})
	case model.EventMessageRemoved:
		m.applyMessageRemoved(e.Message)
	case model.EventConversationRenamed:
		m.ApplyDelta(&model.Delta{ConversationNumber: m.number, Name: e.Name})
	}
}

func (m *Mirror) applyMessageRemoved(msg *model.Message) {
	if msg == nil {
		return
	}
	m.mu.Lock()
	date := msg.SentDate()
	var removed *model.Message
	msgs := m.messages[date]
	for i := range msgs {
		if msgs[i].MessageNumber == msg.MessageNumber {
			cp := msgs[i]
			removed = &cp
			m.messages[date] = append(msgs[:i], msgs[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	if removed != nil {
		m.notify([]Change{{
			ConversationNumber: m.number, Message: removed, Removed: true,
		}})
	}
}

// dropPending clears locally-pending sends the server has confirmed.
// Caller holds the write lock.
func (m *Mirror) dropPending(confirmed *model.Message) {
	for i := range m.pending {
		if m.pending[i].ContentEqual(confirmed) {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
