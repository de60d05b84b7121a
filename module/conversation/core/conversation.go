// Package core is the server-authoritative conversation state: each
// Conversation exclusively owns one member registry and one message
// log per calendar day, created lazily.
//
// Concurrency: a single mutex per conversation serializes every
// operation on it, reads included. Member validation and log creation
// cut across the owned structures, so finer locks would let a
// concurrent membership change race a message validation. Two
// different conversations never contend.
package core

import (
	"sort"
	"sync"

	"CSProject/module/conversation/members"
	"CSProject/module/conversation/model"
	"CSProject/module/conversation/msglog"
	"CSProject/tools/errs"
)

type Conversation struct {
	mu          sync.Mutex
	number      int64
	name        string
	dateCreated model.Date
	members     *members.Registry
	logs        map[model.Date]*msglog.Log
}

func newConversation(number int64, name string, usernames []string) (*Conversation, error) {
	reg, err := members.NewRegistry(usernames)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		number:      number,
		name:        name,
		dateCreated: model.Today(),
		members:     reg,
		logs:        make(map[model.Date]*msglog.Log),
	}, nil
}

func (c *Conversation) Number() int64 { return c.number }

func (c *Conversation) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Conversation) DateCreated() model.Date { return c.dateCreated }

// Rename sets the conversation name; empty means "display the member
// list instead", so it is a valid value.
func (c *Conversation) Rename(name, acting string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.members.IsActive(acting) {
		return errs.ErrNotMember.WrapMsg("rename", "acting", acting)
	}
	c.name = name
	return nil
}

func (c *Conversation) IsMember(username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.IsActive(username)
}

// GetOrCreateLogForDate returns the log for date, creating it when
// absent. Dates strictly after today are rejected before any lookup;
// a log is never created for a future date.
func (c *Conversation) GetOrCreateLogForDate(date model.Date, acting string) (*msglog.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.members.IsActive(acting) {
		return nil, errs.ErrNotMember.WrapMsg("get log", "acting", acting)
	}
	return c.getOrCreateLog(date)
}

func (c *Conversation) getOrCreateLog(date model.Date) (*msglog.Log, error) {
	if date.IsZero() {
		return nil, errs.ErrArgs.WrapMsg("zero date")
	}
	if date.After(model.Today()) {
		return nil, errs.ErrInvalidDate.WrapMsg("date is in the future", "date", date.String())
	}
	log, ok := c.logs[date]
	if !ok {
		log = msglog.NewLog(date)
		c.logs[date] = log
	}
	return log, nil
}

// AddMessage validates the date and the sender's membership, then
// delegates to the log for the message's day.
func (c *Conversation) AddMessage(m *model.Message) error {
	if m == nil {
		return errs.ErrArgs.WrapMsg("nil message")
	}
	if m.SentAt.IsZero() {
		return errs.ErrArgs.WrapMsg("message has no sent time")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.members.IsActive(m.FromUsername) {
		return errs.ErrNotMember.WrapMsg("add message", "from", m.FromUsername)
	}
	log, err := c.getOrCreateLog(m.SentDate())
	if err != nil {
		return err
	}
	return log.AddMessage(m)
}

// AddAllMessagesWithSameDate requires one shared date and active
// senders throughout; the batch goes to the matching log as a unit and
// fails whole on any violation.
func (c *Conversation) AddAllMessagesWithSameDate(msgs []*model.Message) error {
	if len(msgs) == 0 {
		return errs.ErrArgs.WrapMsg("empty message batch")
	}
	for _, m := range msgs {
		if m == nil {
			return errs.ErrArgs.WrapMsg("nil message in batch")
		}
		if m.SentAt.IsZero() {
			return errs.ErrArgs.WrapMsg("message has no sent time")
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	date := msgs[0].SentDate()
	for _, m := range msgs {
		if m.SentDate() != date {
			return errs.ErrArgs.WrapMsg("mixed dates in batch",
				"want", date.String(), "got", m.SentDate().String())
		}
		if !c.members.IsActive(m.FromUsername) {
			return errs.ErrNotMember.WrapMsg("add messages", "from", m.FromUsername)
		}
	}
	log, err := c.getOrCreateLog(date)
	if err != nil {
		return err
	}
	return log.AddAll(msgs)
}

// RemoveMessage deletes from the log matching the message's date;
// without such a log the message cannot exist here.
func (c *Conversation) RemoveMessage(m *model.Message, acting string) error {
	if m == nil {
		return errs.ErrArgs.WrapMsg("nil message")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.members.IsActive(acting) {
		return errs.ErrNotMember.WrapMsg("remove message", "acting", acting)
	}
	log, ok := c.logs[m.SentDate()]
	if !ok {
		return errs.ErrMessageLogNotFound.WrapMsg("remove message", "date", m.SentDate().String())
	}
	return log.RemoveMessage(m)
}

// NewMessagesOnDate returns messages with number > lastSeen on date.
// When no log exists the query still succeeds for "today with a zero
// cursor": nobody having posted yet today is consistent with the
// caller knowing zero messages, and polling clients hit exactly that
// window every morning. Any other dateless lookup is an error.
func (c *Conversation) NewMessagesOnDate(date model.Date, lastSeen int64, acting string) ([]model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newMessagesOnDate(date, lastSeen, acting)
}

func (c *Conversation) newMessagesOnDate(date model.Date, lastSeen int64, acting string) ([]model.Message, error) {
	if !c.members.IsActive(acting) {
		return nil, errs.ErrNotMember.WrapMsg("new messages", "acting", acting)
	}
	log, ok := c.logs[date]
	if !ok {
		if date == model.Today() && lastSeen == 0 {
			return nil, nil
		}
		return nil, errs.ErrMessageLogNotFound.WrapMsg("new messages", "date", date.String())
	}
	return log.NewMessagesSince(lastSeen), nil
}

func (c *Conversation) AddMember(username, acting string) (model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.AddMember(username, acting)
}

func (c *Conversation) RemoveMember(username, acting string) (model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.RemoveMember(username, acting)
}

func (c *Conversation) AddAllMembers(usernames []string, acting string) ([]model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.AddAllMembers(usernames, acting)
}

func (c *Conversation) RemoveAllMembers(usernames []string, acting string) ([]model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.RemoveAllMembers(usernames, acting)
}

func (c *Conversation) NewMembersSince(lastSeen int64, acting string) ([]model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.NewMembersSince(lastSeen, acting)
}

func (c *Conversation) DeletedMembersSince(lastSeenDeleted int64, acting string) ([]model.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.DeletedMembersSince(lastSeenDeleted, acting)
}

// Snapshot is the subscribe-time transfer object: full membership and
// full per-date logs, taken under the conversation lock so it is never
// torn.
func (c *Conversation) Snapshot(acting string) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.members.IsActive(acting) {
		return nil, errs.ErrNotMember.WrapMsg("snapshot", "acting", acting)
	}
	logs := make([]model.LogSnapshot, 0, len(c.logs))
	for _, log := range c.logs {
		logs = append(logs, log.Snapshot())
	}
	sort.Slice(logs, func(i, j int) bool { return logs[j].Date.After(logs[i].Date) })
	return &model.Snapshot{
		ConversationNumber: c.number,
		Name:               c.name,
		DateCreated:        c.dateCreated,
		Members:            c.members.ActiveMembers(),
		MessageLogs:        logs,
		LastMemberNumber:   c.members.LastMemberNumber(),
		LastDeletedNumber:  c.members.LastDeletedNumber(),
	}, nil
}

// DeltaSince answers one polled delta query under a single lock: new
// messages on the requested date plus membership adds and removals
// past the caller's cursors.
func (c *Conversation) DeltaSince(q model.DeltaQuery) (*model.Delta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs, err := c.newMessagesOnDate(q.Date, q.LastMessageNumber, q.ActingUsername)
	if err != nil {
		return nil, err
	}
	added, err := c.members.NewMembersSince(q.LastMemberNumber, q.ActingUsername)
	if err != nil {
		return nil, err
	}
	removed, err := c.members.DeletedMembersSince(q.LastDeletedMemberNumber, q.ActingUsername)
	if err != nil {
		return nil, err
	}
	return &model.Delta{
		ConversationNumber: c.number,
		Name:               c.name,
		NewMessages:        msgs,
		NewMembers:         added,
		RemovedMembers:     removed,
	}, nil
}
