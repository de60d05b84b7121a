package chat

import (
	"sync"
)

// Registry indexes live connections by conn id, user, and subscribed
// conversation, so event fanout can find its audience without walking
// everything.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Client
	byUser map[string]map[string]*Client  // user -> conn_id -> client
	byConv map[int64]map[string]*Client   // conversation -> conn_id -> client
	convs  map[string]map[int64]struct{}  // conn_id -> subscribed conversations
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
		byConv: make(map[int64]map[string]*Client),
		convs:  make(map[string]map[int64]struct{}),
	}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byUser[c.UserID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.UserID] = m
	}
	m[c.ID] = c
	r.byConn[c.ID] = c
	r.convs[c.ID] = make(map[int64]struct{})
}

func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byUser[c.UserID]; m != nil {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	for conv := range r.convs[c.ID] {
		if m := r.byConv[conv]; m != nil {
			delete(m, c.ID)
			if len(m) == 0 {
				delete(r.byConv, conv)
			}
		}
	}
	delete(r.convs, c.ID)
	delete(r.byConn, c.ID)
}

func (r *Registry) Subscribe(connID string, conv int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connID]
	if !ok {
		return
	}
	m := r.byConv[conv]
	if m == nil {
		m = make(map[string]*Client)
		r.byConv[conv] = m
	}
	m[connID] = c
	r.convs[connID][conv] = struct{}{}
}

func (r *Registry) Unsubscribe(connID string, conv int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byConv[conv]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byConv, conv)
		}
	}
	if subs, ok := r.convs[connID]; ok {
		delete(subs, conv)
	}
}

// ListByConv returns the clients subscribed to a conversation.
func (r *Registry) ListByConv(conv int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byConv[conv]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) ListByUser(user string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[user]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) GetByConnID(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
