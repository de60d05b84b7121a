package members

import (
	"errors"
	"testing"

	"CSProject/tools/errs"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]string{"alice", "bob"})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return r
}

func TestNewRegistryValidation(t *testing.T) {
	if _, err := NewRegistry(nil); !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("empty initial list: got %v, want ErrArgs", err)
	}
	if _, err := NewRegistry([]string{"alice", ""}); !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("blank username: got %v, want ErrArgs", err)
	}
	if _, err := NewRegistry([]string{"alice", "alice"}); !errors.Is(err, errs.ErrDuplicateMember) {
		t.Fatalf("duplicate username: got %v, want ErrDuplicateMember", err)
	}
}

func TestAddMemberAssignsMonotonicNumbers(t *testing.T) {
	r := newTestRegistry(t)

	carol, err := r.AddMember("carol", "alice")
	if err != nil {
		t.Fatalf("AddMember carol: %v", err)
	}
	if carol.MemberNumber != 3 {
		t.Fatalf("carol number = %d, want 3", carol.MemberNumber)
	}

	// numbers are never reused, even after removals
	if _, err := r.RemoveMember("carol", "alice"); err != nil {
		t.Fatalf("RemoveMember carol: %v", err)
	}
	dave, err := r.AddMember("dave", "alice")
	if err != nil {
		t.Fatalf("AddMember dave: %v", err)
	}
	if dave.MemberNumber != 4 {
		t.Fatalf("dave number = %d, want 4", dave.MemberNumber)
	}
}

func TestAddMemberGates(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.AddMember("carol", "mallory"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("non-member acting: got %v, want ErrNotMember", err)
	}
	if _, err := r.AddMember("bob", "alice"); !errors.Is(err, errs.ErrDuplicateMember) {
		t.Fatalf("duplicate add: got %v, want ErrDuplicateMember", err)
	}
	if _, err := r.AddMember("", "alice"); !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("blank username: got %v, want ErrArgs", err)
	}
}

func TestRemoveMemberTombstones(t *testing.T) {
	r := newTestRegistry(t)

	bob, err := r.RemoveMember("bob", "alice")
	if err != nil {
		t.Fatalf("RemoveMember bob: %v", err)
	}
	if bob.DeletedNumber != 1 {
		t.Fatalf("bob tombstone sequence = %d, want 1", bob.DeletedNumber)
	}
	if r.IsActive("bob") {
		t.Fatal("bob still active after removal")
	}

	deleted, err := r.DeletedMembersSince(0, "alice")
	if err != nil {
		t.Fatalf("DeletedMembersSince: %v", err)
	}
	if len(deleted) != 1 || deleted[0].Username != "bob" || deleted[0].DeletedNumber != 1 {
		t.Fatalf("DeletedMembersSince(0) = %+v, want [bob/1]", deleted)
	}

	if _, err := r.RemoveMember("bob", "alice"); !errors.Is(err, errs.ErrMemberNotFound) {
		t.Fatalf("double remove: got %v, want ErrMemberNotFound", err)
	}
	if _, err := r.RemoveMember("alice", "bob"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("removed acting user: got %v, want ErrNotMember", err)
	}
}

func TestNewMembersSince(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.AddMember("carol", "alice"); err != nil {
		t.Fatalf("AddMember carol: %v", err)
	}

	got, err := r.NewMembersSince(1, "bob")
	if err != nil {
		t.Fatalf("NewMembersSince: %v", err)
	}
	if len(got) != 2 || got[0].Username != "bob" || got[1].Username != "carol" {
		t.Fatalf("NewMembersSince(1) = %+v, want [bob carol]", got)
	}

	if _, err := r.NewMembersSince(0, "mallory"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("non-member delta query: got %v, want ErrNotMember", err)
	}
}

func TestAddAllMembersAtomic(t *testing.T) {
	r := newTestRegistry(t)

	// bob is already a member: nothing may be applied
	_, err := r.AddAllMembers([]string{"carol", "bob", "dave"}, "alice")
	if !errors.Is(err, errs.ErrCouldNotAddMember) {
		t.Fatalf("batch with existing member: got %v, want ErrCouldNotAddMember", err)
	}
	// the batch failure still answers to the single-item code
	if !errors.Is(err, errs.ErrDuplicateMember) {
		t.Fatalf("batch failure should match ErrDuplicateMember, got %v", err)
	}
	if r.IsActive("carol") || r.IsActive("dave") {
		t.Fatal("batch partially applied")
	}
	if got := r.LastMemberNumber(); got != 2 {
		t.Fatalf("lastMemberNumber = %d, want 2 (unchanged)", got)
	}

	added, err := r.AddAllMembers([]string{"carol", "dave"}, "alice")
	if err != nil {
		t.Fatalf("valid batch: %v", err)
	}
	if len(added) != 2 || added[0].MemberNumber != 3 || added[1].MemberNumber != 4 {
		t.Fatalf("batch numbers = %+v, want 3,4 in input order", added)
	}
}

func TestRemoveAllMembersAtomic(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.AddMember("carol", "alice"); err != nil {
		t.Fatalf("AddMember carol: %v", err)
	}

	_, err := r.RemoveAllMembers([]string{"bob", "mallory"}, "alice")
	if !errors.Is(err, errs.ErrCouldNotRemoveMember) {
		t.Fatalf("batch with absent member: got %v, want ErrCouldNotRemoveMember", err)
	}
	if !r.IsActive("bob") {
		t.Fatal("batch partially applied")
	}
	if got := r.LastDeletedNumber(); got != 0 {
		t.Fatalf("lastDeletedNumber = %d, want 0", got)
	}

	removed, err := r.RemoveAllMembers([]string{"bob", "carol"}, "alice")
	if err != nil {
		t.Fatalf("valid batch: %v", err)
	}
	if len(removed) != 2 || removed[0].DeletedNumber != 1 || removed[1].DeletedNumber != 2 {
		t.Fatalf("tombstone sequences = %+v, want 1,2", removed)
	}
}

// TestDeltaRoundTrip rebuilds a stale mirror of the active set purely
// from the two delta queries and checks it converges on the registry.
func TestDeltaRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	// S1: mirror the current state
	mirror := make(map[string]struct{})
	for _, m := range r.ActiveMembers() {
		mirror[m.Username] = struct{}{}
	}
	lastMember := r.LastMemberNumber()
	lastDeleted := r.LastDeletedNumber()

	// reach S2 through recorded adds/removes
	if _, err := r.AddAllMembers([]string{"carol", "dave"}, "alice"); err != nil {
		t.Fatalf("AddAllMembers: %v", err)
	}
	if _, err := r.RemoveMember("bob", "alice"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if _, err := r.RemoveMember("dave", "carol"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	added, err := r.NewMembersSince(lastMember, "alice")
	if err != nil {
		t.Fatalf("NewMembersSince: %v", err)
	}
	deleted, err := r.DeletedMembersSince(lastDeleted, "alice")
	if err != nil {
		t.Fatalf("DeletedMembersSince: %v", err)
	}
	for _, m := range added {
		mirror[m.Username] = struct{}{}
	}
	for _, m := range deleted {
		delete(mirror, m.Username)
	}

	want := r.ActiveMembers()
	if len(mirror) != len(want) {
		t.Fatalf("mirror has %d members, want %d", len(mirror), len(want))
	}
	for _, m := range want {
		if _, ok := mirror[m.Username]; !ok {
			t.Fatalf("mirror missing %s", m.Username)
		}
	}
}
