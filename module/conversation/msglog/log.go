// Package msglog is the per-calendar-day partition of a conversation's
// messages: an append-only ordered collection with a monotonic,
// gapless message number assigned at insertion.
package msglog

import (
	"sync"

	"CSProject/module/conversation/model"
	"CSProject/tools/errs"
)

type Log struct {
	mu       sync.RWMutex
	date     model.Date
	messages []*model.Message // ascending by message number; removal leaves holes
	lastNum  int64
}

func NewLog(date model.Date) *Log {
	return &Log{date: date}
}

func (l *Log) Date() model.Date { return l.date }

// AddMessage assigns the next message number to m and appends it.
// A message equal in content to a stored one is rejected, and so is a
// message object that already carries a number (it has been through
// assignment once, possibly in another log).
func (l *Log) AddMessage(m *model.Message) error {
	if err := l.checkMessage(m); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkNew(m); err != nil {
		return err
	}
	l.append(m)
	return nil
}

// AddAll appends the batch atomically: the whole batch is checked
// first and nothing is applied when any message is a duplicate,
// already numbered, or dated off this log.
func (l *Log) AddAll(msgs []*model.Message) error {
	if len(msgs) == 0 {
		return errs.ErrArgs.WrapMsg("empty message batch")
	}
	for _, m := range msgs {
		if err := l.checkMessage(m); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range msgs {
		if err := l.checkNew(m); err != nil {
			return err
		}
		for _, prev := range msgs[:i] {
			if m.ContentEqual(prev) {
				return errs.ErrDuplicateMessage.WrapMsg("repeated in batch", "from", m.FromUsername)
			}
		}
	}
	for _, m := range msgs {
		l.append(m)
	}
	return nil
}

func (l *Log) checkMessage(m *model.Message) error {
	if m == nil {
		return errs.ErrArgs.WrapMsg("nil message")
	}
	if m.FromUsername == "" {
		return errs.ErrArgs.WrapMsg("message has no sender")
	}
	if m.SentAt.IsZero() {
		return errs.ErrArgs.WrapMsg("message has no sent time")
	}
	if m.SentDate() != l.date {
		return errs.ErrArgs.WrapMsg("message dated off this log",
			"log", l.date.String(), "message", m.SentDate().String())
	}
	return nil
}

// checkNew holds the invariant checks done under the lock.
func (l *Log) checkNew(m *model.Message) error {
	if m.Numbered() {
		return errs.ErrDuplicateMessage.WrapMsg("message already numbered",
			"number", m.MessageNumber)
	}
	for _, stored := range l.messages {
		if stored.ContentEqual(m) {
			return errs.ErrDuplicateMessage.WrapMsg("equal message stored",
				"number", stored.MessageNumber)
		}
	}
	return nil
}

func (l *Log) append(m *model.Message) {
	l.lastNum++
	m.MessageNumber = l.lastNum
	cp := *m
	l.messages = append(l.messages, &cp)
}

// RemoveMessage removes by assigned number when m carries one,
// otherwise by content equality.
func (l *Log) RemoveMessage(m *model.Message) error {
	if m == nil {
		return errs.ErrArgs.WrapMsg("nil message")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, stored := range l.messages {
		if m.Numbered() && stored.MessageNumber == m.MessageNumber ||
			!m.Numbered() && stored.ContentEqual(m) {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return nil
		}
	}
	return errs.ErrMessageNotFound.WrapMsg("remove message",
		"from", m.FromUsername, "number", m.MessageNumber)
}

// NewMessagesSince returns messages with number > lastSeen, ascending.
func (l *Log) NewMessagesSince(lastSeen int64) []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Message
	for _, m := range l.messages {
		if m.MessageNumber > lastSeen {
			out = append(out, *m)
		}
	}
	return out
}

// AllNew is the batch duplicate pre-check: it reports whether none of
// the given messages matches a stored one.
func (l *Log) AllNew(msgs []*model.Message) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range msgs {
		if m == nil || m.Numbered() {
			return false
		}
		for _, stored := range l.messages {
			if stored.ContentEqual(m) {
				return false
			}
		}
	}
	return true
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

func (l *Log) LastMessageNumber() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastNum
}

func (l *Log) Snapshot() model.LogSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	msgs := make([]model.Message, 0, len(l.messages))
	for _, m := range l.messages {
		msgs = append(msgs, *m)
	}
	return model.LogSnapshot{
		Date:              l.date,
		Messages:          msgs,
		LastMessageNumber: l.lastNum,
	}
}
