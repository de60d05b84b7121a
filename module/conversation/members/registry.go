// Package members holds the membership set of one conversation.
//
// Member numbers and removal (tombstone) numbers are monotonic and
// never reused, so a client can ask "everything after cursor N" and
// get an exact answer regardless of clock skew. Every mutating call
// and every delta query is gated on the acting user being an active
// member; that gate is the conversation's only access control.
package members

import (
	"sort"
	"sync"

	"CSProject/module/conversation/model"
	"CSProject/tools/errs"
)

type Registry struct {
	mu         sync.RWMutex
	active     map[int64]*model.Member // member number -> member
	byName     map[string]*model.Member
	tombstones map[int64]*model.Member // deleted sequence -> member

	lastMemberNumber  int64
	lastDeletedNumber int64
}

// NewRegistry creates a registry with the initial member set. The set
// must be non-empty and free of blanks and duplicates; numbers are
// assigned in input order starting at 1.
func NewRegistry(usernames []string) (*Registry, error) {
	if len(usernames) == 0 {
		return nil, errs.ErrArgs.WrapMsg("initial member list is empty")
	}
	r := &Registry{
		active:     make(map[int64]*model.Member, len(usernames)),
		byName:     make(map[string]*model.Member, len(usernames)),
		tombstones: make(map[int64]*model.Member),
	}
	for _, name := range usernames {
		if name == "" {
			return nil, errs.ErrArgs.WrapMsg("empty username in initial member list")
		}
		if _, ok := r.byName[name]; ok {
			return nil, errs.ErrDuplicateMember.WrapMsg("initial member list", "username", name)
		}
		r.insert(name)
	}
	return r, nil
}

// insert assigns the next member number. Callers hold the lock (or own
// the registry exclusively, as NewRegistry does).
func (r *Registry) insert(username string) *model.Member {
	r.lastMemberNumber++
	m := &model.Member{Username: username, MemberNumber: r.lastMemberNumber}
	r.active[m.MemberNumber] = m
	r.byName[username] = m
	return m
}

func (r *Registry) IsActive(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[username]
	return ok
}

// AddMember adds username and returns the stored member with its
// assigned number.
func (r *Registry) AddMember(username, acting string) (model.Member, error) {
	if username == "" || acting == "" {
		return model.Member{}, errs.ErrArgs.WrapMsg("username and acting username are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[acting]; !ok {
		return model.Member{}, errs.ErrNotMember.WrapMsg("add member", "acting", acting)
	}
	if _, ok := r.byName[username]; ok {
		return model.Member{}, errs.ErrDuplicateMember.WrapMsg("add member", "username", username)
	}
	return *r.insert(username), nil
}

// RemoveMember moves username to the tombstone set under the next
// removal sequence and returns the tombstone.
func (r *Registry) RemoveMember(username, acting string) (model.Member, error) {
	if username == "" || acting == "" {
		return model.Member{}, errs.ErrArgs.WrapMsg("username and acting username are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[acting]; !ok {
		return model.Member{}, errs.ErrNotMember.WrapMsg("remove member", "acting", acting)
	}
	m, ok := r.byName[username]
	if !ok {
		return model.Member{}, errs.ErrMemberNotFound.WrapMsg("remove member", "username", username)
	}
	return *r.entomb(m), nil
}

func (r *Registry) entomb(m *model.Member) *model.Member {
	delete(r.active, m.MemberNumber)
	delete(r.byName, m.Username)
	r.lastDeletedNumber++
	m.DeletedNumber = r.lastDeletedNumber
	r.tombstones[r.lastDeletedNumber] = m
	return m
}

// AddAllMembers is all-or-nothing: if any target is blank, already
// active, or repeated within the batch, nothing is applied.
func (r *Registry) AddAllMembers(usernames []string, acting string) ([]model.Member, error) {
	if len(usernames) == 0 || acting == "" {
		return nil, errs.ErrArgs.WrapMsg("usernames and acting username are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[acting]; !ok {
		return nil, errs.ErrNotMember.WrapMsg("add members", "acting", acting)
	}
	seen := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		if name == "" {
			return nil, errs.ErrArgs.WrapMsg("empty username in batch")
		}
		if _, ok := r.byName[name]; ok {
			return nil, errs.ErrCouldNotAddMember.WrapMsg("already a member", "username", name)
		}
		if _, ok := seen[name]; ok {
			return nil, errs.ErrCouldNotAddMember.WrapMsg("repeated in batch", "username", name)
		}
		seen[name] = struct{}{}
	}
	out := make([]model.Member, 0, len(usernames))
	for _, name := range usernames {
		out = append(out, *r.insert(name))
	}
	return out, nil
}

// RemoveAllMembers is all-or-nothing: if any target is absent or
// repeated within the batch, nothing is applied.
func (r *Registry) RemoveAllMembers(usernames []string, acting string) ([]model.Member, error) {
	if len(usernames) == 0 || acting == "" {
		return nil, errs.ErrArgs.WrapMsg("usernames and acting username are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[acting]; !ok {
		return nil, errs.ErrNotMember.WrapMsg("remove members", "acting", acting)
	}
	seen := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		if name == "" {
			return nil, errs.ErrArgs.WrapMsg("empty username in batch")
		}
		if _, ok := r.byName[name]; !ok {
			return nil, errs.ErrCouldNotRemoveMember.WrapMsg("not a member", "username", name)
		}
		if _, ok := seen[name]; ok {
			return nil, errs.ErrCouldNotRemoveMember.WrapMsg("repeated in batch", "username", name)
		}
		seen[name] = struct{}{}
	}
	out := make([]model.Member, 0, len(usernames))
	for _, name := range usernames {
		out = append(out, *r.entomb(r.byName[name]))
	}
	return out, nil
}

// NewMembersSince returns active members with number > lastSeen,
// ascending.
func (r *Registry) NewMembersSince(lastSeen int64, acting string) ([]model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byName[acting]; !ok {
		return nil, errs.ErrNotMember.WrapMsg("new members since", "acting", acting)
	}
	var out []model.Member
	for num, m := range r.active {
		if num > lastSeen {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberNumber < out[j].MemberNumber })
	return out, nil
}

// DeletedMembersSince returns tombstones with removal sequence >
// lastSeenDeleted. Tombstones are never discarded, so the scan from
// lastSeenDeleted+1 up to the current sequence is contiguous.
func (r *Registry) DeletedMembersSince(lastSeenDeleted int64, acting string) ([]model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byName[acting]; !ok {
		return nil, errs.ErrNotMember.WrapMsg("deleted members since", "acting", acting)
	}
	var out []model.Member
	for seq := lastSeenDeleted + 1; seq <= r.lastDeletedNumber; seq++ {
		if m, ok := r.tombstones[seq]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

// ActiveMembers returns the active set ascending by member number.
func (r *Registry) ActiveMembers() []model.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Member, 0, len(r.active))
	for _, m := range r.active {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberNumber < out[j].MemberNumber })
	return out
}

func (r *Registry) LastMemberNumber() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastMemberNumber
}

func (r *Registry) LastDeletedNumber() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastDeletedNumber
}
