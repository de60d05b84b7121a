package core

import (
	"sort"
	"sync"

	"CSProject/module/conversation/model"
	"CSProject/tools/errs"
)

// Register is the server's full set of conversations. Conversation
// numbers are assigned sequentially and never reused, deletions
// included. One Register instance lives in the server state struct;
// there is no ambient global.
type Register struct {
	mu         sync.RWMutex
	convs      map[int64]*Conversation
	lastNumber int64
}

func NewRegister() *Register {
	return &Register{convs: make(map[int64]*Conversation)}
}

// Create makes a new conversation from an initial member list (at
// least one member) and an optional name.
func (r *Register) Create(name string, usernames []string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, err := newConversation(r.lastNumber+1, name, usernames)
	if err != nil {
		return nil, err
	}
	r.lastNumber++
	r.convs[conv.Number()] = conv
	return conv, nil
}

func (r *Register) Get(number int64) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.convs[number]
	if !ok {
		return nil, errs.ErrConversationNotFound.WrapMsg("get", "number", number)
	}
	return conv, nil
}

// Remove deletes the conversation as a whole unit. Only a current
// member may delete it.
func (r *Register) Remove(number int64, acting string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[number]
	if !ok {
		return errs.ErrConversationNotFound.WrapMsg("remove", "number", number)
	}
	if !conv.IsMember(acting) {
		return errs.ErrNotMember.WrapMsg("remove conversation", "acting", acting)
	}
	delete(r.convs, number)
	return nil
}

// NumbersFor lists the conversations username participates in,
// ascending. Feeds the client's personal register at bootstrap.
func (r *Register) NumbersFor(username string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int64
	for num, conv := range r.convs {
		if conv.IsMember(username) {
			out = append(out, num)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Register) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convs)
}

// DeltaSince resolves the conversation and answers the query.
func (r *Register) DeltaSince(q model.DeltaQuery) (*model.Delta, error) {
	conv, err := r.Get(q.ConversationNumber)
	if err != nil {
		return nil, err
	}
	return conv.DeltaSince(q)
}
