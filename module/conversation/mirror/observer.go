package mirror

import "CSProject/module/conversation/model"

// Change is the single-item delta handed to observers: exactly one of
// Message / Member set, or Renamed true, plus the removed flag.
type Change struct {
	ConversationNumber int64
	Message            *model.Message
	Member             *model.Member
	Name               string
	Renamed            bool
	Removed            bool
}

// Observer receives changes synchronously on the goroutine that
// applied the delta. Observers must not panic; a panicking observer is
// a programming error of the registrant, not a condition the mirror
// recovers from.
type Observer func(Change)

// Subscription is the handle returned by Subscribe; Cancel
// unregisters the observer. Cancel is idempotent.
type Subscription struct {
	id int64
	m  *Mirror
}

func (s *Subscription) Cancel() {
	if s == nil || s.m == nil {
		return
	}
	s.m.obsMu.Lock()
	delete(s.m.observers, s.id)
	s.m.obsMu.Unlock()
	s.m = nil
}

// Subscribe registers fn for every future change on the mirror.
func (m *Mirror) Subscribe(fn Observer) *Subscription {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.nextObsID++
	m.observers[m.nextObsID] = fn
	return &Subscription{id: m.nextObsID, m: m}
}

// Subscribed reports whether the handle is still registered.
func (m *Mirror) Subscribed(s *Subscription) bool {
	if s == nil || s.m != m {
		return false
	}
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	_, ok := m.observers[s.id]
	return ok
}

func (m *Mirror) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	m.obsMu.Lock()
	obs := make([]Observer, 0, len(m.observers))
	for _, fn := range m.observers {
		obs = append(obs, fn)
	}
	m.obsMu.Unlock()
	for _, ch := range changes {
		for _, fn := range obs {
			fn(ch)
		}
	}
}
