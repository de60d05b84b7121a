package core

import (
	"errors"
	"testing"
	"time"

	"CSProject/module/conversation/model"
	"CSProject/tools/errs"
)

func newTestConversation(t *testing.T) *Conversation {
	t.Helper()
	conv, err := newConversation(1, "standup", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("newConversation: %v", err)
	}
	return conv
}

func todayAt(hour int) time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
}

func TestGetOrCreateLogDateBoundary(t *testing.T) {
	conv := newTestConversation(t)

	tomorrow := model.DateOf(time.Now().AddDate(0, 0, 1))
	if _, err := conv.GetOrCreateLogForDate(tomorrow, "alice"); !errors.Is(err, errs.ErrInvalidDate) {
		t.Fatalf("future date: got %v, want ErrInvalidDate", err)
	}
	if _, err := conv.GetOrCreateLogForDate(model.Date{}, "alice"); !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("zero date: got %v, want ErrArgs", err)
	}
	if _, err := conv.GetOrCreateLogForDate(model.Today(), "mallory"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("non-member: got %v, want ErrNotMember", err)
	}

	first, err := conv.GetOrCreateLogForDate(model.Today(), "alice")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	second, err := conv.GetOrCreateLogForDate(model.Today(), "bob")
	if err != nil {
		t.Fatalf("today again: %v", err)
	}
	if first != second {
		t.Fatal("same date produced two log instances")
	}

	yesterday := model.DateOf(time.Now().AddDate(0, 0, -1))
	if _, err := conv.GetOrCreateLogForDate(yesterday, "alice"); err != nil {
		t.Fatalf("past date: %v", err)
	}
}

func TestAddMessageGates(t *testing.T) {
	conv := newTestConversation(t)

	err := conv.AddMessage(model.NewMessage("mallory", "hi", todayAt(9)))
	if !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("non-member sender: got %v, want ErrNotMember", err)
	}

	err = conv.AddMessage(model.NewMessage("alice", "hi", time.Now().AddDate(0, 0, 1)))
	if !errors.Is(err, errs.ErrInvalidDate) {
		t.Fatalf("future message: got %v, want ErrInvalidDate", err)
	}

	m := model.NewMessage("alice", "hi", todayAt(9))
	if err := conv.AddMessage(m); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if m.MessageNumber != 1 {
		t.Fatalf("message number = %d, want 1", m.MessageNumber)
	}
}

// A rejected add must not leave a log behind: a zero sent time would
// otherwise map to the 0001-01-01 date, pass the date gates, and
// leave a permanent empty log in every snapshot.
func TestRejectedAddCreatesNoLog(t *testing.T) {
	conv := newTestConversation(t)

	err := conv.AddMessage(&model.Message{FromUsername: "alice", Text: "hi"})
	if !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("zero sent time: got %v, want ErrArgs", err)
	}
	err = conv.AddAllMessagesWithSameDate([]*model.Message{
		{FromUsername: "alice", Text: "hi"},
		{FromUsername: "bob", Text: "hello"},
	})
	if !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("zero sent time batch: got %v, want ErrArgs", err)
	}

	snap, err := conv.Snapshot("alice")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.MessageLogs) != 0 {
		t.Fatalf("rejected adds left %d logs behind: %+v", len(snap.MessageLogs), snap.MessageLogs)
	}
}

// A poll for today with a zero cursor succeeds with no messages even
// before anyone posted (so no log exists yet). Any other missing-log
// lookup is an error.
func TestNewMessagesTodayBeforeFirstPost(t *testing.T) {
	conv := newTestConversation(t)

	msgs, err := conv.NewMessagesOnDate(model.Today(), 0, "alice")
	if err != nil {
		t.Fatalf("today, zero cursor: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}

	if _, err := conv.NewMessagesOnDate(model.Today(), 1, "alice"); !errors.Is(err, errs.ErrMessageLogNotFound) {
		t.Fatalf("today, nonzero cursor: got %v, want ErrMessageLogNotFound", err)
	}
	yesterday := model.DateOf(time.Now().AddDate(0, 0, -1))
	if _, err := conv.NewMessagesOnDate(yesterday, 0, "alice"); !errors.Is(err, errs.ErrMessageLogNotFound) {
		t.Fatalf("yesterday, no log: got %v, want ErrMessageLogNotFound", err)
	}
}

func TestAddAllMessagesWithSameDate(t *testing.T) {
	conv := newTestConversation(t)

	// a nil element fails whole, wherever it sits in the batch
	err := conv.AddAllMessagesWithSameDate([]*model.Message{
		nil,
		model.NewMessage("alice", "hi", todayAt(9)),
	})
	if !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("nil leading element: got %v, want ErrArgs", err)
	}
	err = conv.AddAllMessagesWithSameDate([]*model.Message{
		model.NewMessage("alice", "hi", todayAt(9)),
		nil,
	})
	if !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("nil trailing element: got %v, want ErrArgs", err)
	}

	// mixed dates fail whole
	err = conv.AddAllMessagesWithSameDate([]*model.Message{
		model.NewMessage("alice", "hi", todayAt(9)),
		model.NewMessage("bob", "hello", todayAt(10).AddDate(0, 0, -1)),
	})
	if !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("mixed dates: got %v, want ErrArgs", err)
	}

	// one non-member sender fails whole
	err = conv.AddAllMessagesWithSameDate([]*model.Message{
		model.NewMessage("alice", "hi", todayAt(9)),
		model.NewMessage("mallory", "hello", todayAt(10)),
	})
	if !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("non-member in batch: got %v, want ErrNotMember", err)
	}

	// nothing from the failed batches landed
	if msgs, err := conv.NewMessagesOnDate(model.Today(), 0, "alice"); err != nil || len(msgs) != 0 {
		t.Fatalf("after failed batches: msgs=%v err=%v", msgs, err)
	}

	batch := []*model.Message{
		model.NewMessage("alice", "hi", todayAt(9)),
		model.NewMessage("bob", "hello", todayAt(10)),
	}
	if err := conv.AddAllMessagesWithSameDate(batch); err != nil {
		t.Fatalf("valid batch: %v", err)
	}
	if batch[0].MessageNumber != 1 || batch[1].MessageNumber != 2 {
		t.Fatalf("batch numbers = %d,%d, want 1,2", batch[0].MessageNumber, batch[1].MessageNumber)
	}
}

func TestRemoveMessage(t *testing.T) {
	conv := newTestConversation(t)

	err := conv.RemoveMessage(model.NewMessage("alice", "hi", todayAt(9)), "alice")
	if !errors.Is(err, errs.ErrMessageLogNotFound) {
		t.Fatalf("no log for date: got %v, want ErrMessageLogNotFound", err)
	}

	m := model.NewMessage("alice", "hi", todayAt(9))
	if err := conv.AddMessage(m); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := conv.RemoveMessage(m, "bob"); err != nil {
		t.Fatalf("RemoveMessage: %v", err)
	}
	msgs, err := conv.NewMessagesOnDate(model.Today(), 0, "alice")
	if err != nil {
		t.Fatalf("NewMessagesOnDate: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages after removal, want 0", len(msgs))
	}
}

func TestRename(t *testing.T) {
	conv := newTestConversation(t)

	if err := conv.Rename("retro", "mallory"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("non-member rename: got %v, want ErrNotMember", err)
	}
	if err := conv.Rename("retro", "bob"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := conv.Name(); got != "retro" {
		t.Fatalf("Name = %q, want %q", got, "retro")
	}
	// clearing the name is a valid rename
	if err := conv.Rename("", "alice"); err != nil {
		t.Fatalf("Rename to empty: %v", err)
	}
	if got := conv.Name(); got != "" {
		t.Fatalf("Name = %q, want empty", got)
	}
}

func TestSnapshotAndDelta(t *testing.T) {
	conv := newTestConversation(t)
	if err := conv.AddMessage(model.NewMessage("alice", "hi", todayAt(9))); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if _, err := conv.AddMember("carol", "alice"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := conv.RemoveMember("bob", "alice"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	if _, err := conv.Snapshot("mallory"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("non-member snapshot: got %v, want ErrNotMember", err)
	}
	snap, err := conv.Snapshot("alice")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.ConversationNumber != 1 || len(snap.Members) != 2 || len(snap.MessageLogs) != 1 {
		t.Fatalf("Snapshot = %+v", snap)
	}
	if snap.LastMemberNumber != 3 || snap.LastDeletedNumber != 1 {
		t.Fatalf("cursors = %d/%d, want 3/1", snap.LastMemberNumber, snap.LastDeletedNumber)
	}

	d, err := conv.DeltaSince(model.DeltaQuery{
		ConversationNumber: 1,
		Date:               model.Today(),
		ActingUsername:     "alice",
	})
	if err != nil {
		t.Fatalf("DeltaSince: %v", err)
	}
	if len(d.NewMessages) != 1 || len(d.NewMembers) != 2 || len(d.RemovedMembers) != 1 {
		t.Fatalf("Delta = %+v", d)
	}

	// fully caught up: an empty delta
	d, err = conv.DeltaSince(model.DeltaQuery{
		ConversationNumber:      1,
		Date:                    model.Today(),
		LastMessageNumber:       snap.MessageLogs[0].LastMessageNumber,
		LastMemberNumber:        snap.LastMemberNumber,
		LastDeletedMemberNumber: snap.LastDeletedNumber,
		ActingUsername:          "alice",
	})
	if err != nil {
		t.Fatalf("DeltaSince caught up: %v", err)
	}
	if !d.Empty() {
		t.Fatalf("caught-up delta not empty: %+v", d)
	}

	if _, err := conv.DeltaSince(model.DeltaQuery{Date: model.Today(), ActingUsername: "bob"}); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("removed member delta: got %v, want ErrNotMember", err)
	}
}
