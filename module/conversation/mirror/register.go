package mirror

import (
	"sort"
	"sync"

	"CSProject/module/conversation/model"
	"CSProject/tools/errs"
)

// PersonalRegister holds the mirrors for the conversations one user
// participates in. It is owned exclusively by the client process.
type PersonalRegister struct {
	mu      sync.RWMutex
	user    string
	mirrors map[int64]*Mirror
}

func NewPersonalRegister(user string) *PersonalRegister {
	return &PersonalRegister{user: user, mirrors: make(map[int64]*Mirror)}
}

func (p *PersonalRegister) User() string { return p.user }

// Put builds a mirror from a fresh snapshot, replacing any stale one
// for the same conversation.
func (p *PersonalRegister) Put(snap *model.Snapshot) *Mirror {
	m := NewMirror(snap)
	p.mu.Lock()
	p.mirrors[snap.ConversationNumber] = m
	p.mu.Unlock()
	return m
}

func (p *PersonalRegister) Get(number int64) (*Mirror, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.mirrors[number]
	return m, ok
}

func (p *PersonalRegister) Remove(number int64) {
	p.mu.Lock()
	delete(p.mirrors, number)
	p.mu.Unlock()
}

func (p *PersonalRegister) Numbers() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]int64, 0, len(p.mirrors))
	for num := range p.mirrors {
		out = append(out, num)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ApplyDelta routes a polled delta to its mirror.
func (p *PersonalRegister) ApplyDelta(d *model.Delta) error {
	if d == nil {
		return errs.ErrArgs.WrapMsg("nil delta")
	}
	m, ok := p.Get(d.ConversationNumber)
	if !ok {
		return errs.ErrConversationNotFound.WrapMsg("apply delta", "number", d.ConversationNumber)
	}
	m.ApplyDelta(d)
	return nil
}

// ApplyEvent routes a pushed event; a deleted conversation drops its
// mirror.
func (p *PersonalRegister) ApplyEvent(e *model.Event) error {
	if e == nil {
		return errs.ErrArgs.WrapMsg("nil event")
	}
	if e.Type == model.EventConversationDeleted {
		p.Remove(e.ConversationNumber)
		return nil
	}
	m, ok := p.Get(e.ConversationNumber)
	if !ok {
		return errs.ErrConversationNotFound.WrapMsg("apply event", "number", e.ConversationNumber)
	}
	m.ApplyEvent(e)
	return nil
}
