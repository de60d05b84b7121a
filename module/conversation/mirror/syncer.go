package mirror

import (
	"context"
	"errors"
	"time"

	"CSProject/logger"
	"CSProject/module/conversation/model"
	"CSProject/tools/errs"
)

// DeltaSource is the transport the syncer polls through: typically the
// gateway's REST API, but tests plug the server register in directly.
type DeltaSource interface {
	ConversationNumbers(ctx context.Context) ([]int64, error)
	Snapshot(ctx context.Context, conversationNumber int64) (*model.Snapshot, error)
	Delta(ctx context.Context, q model.DeltaQuery) (*model.Delta, error)
}

// Syncer keeps a personal register converged on the authority by
// polling: one snapshot per conversation at bootstrap, deltas after.
type Syncer struct {
	src      DeltaSource
	reg      *PersonalRegister
	interval time.Duration
}

func NewSyncer(src DeltaSource, reg *PersonalRegister, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Syncer{src: src, reg: reg, interval: interval}
}

// Bootstrap loads the user's conversation list and mirrors each from a
// full snapshot.
func (s *Syncer) Bootstrap(ctx context.Context) error {
	numbers, err := s.src.ConversationNumbers(ctx)
	if err != nil {
		return errs.WrapMsg(err, "list conversations")
	}
	for _, num := range numbers {
		snap, err := s.src.Snapshot(ctx, num)
		if err != nil {
			return errs.WrapMsg(err, "snapshot conversation", "number", num)
		}
		s.reg.Put(snap)
	}
	return nil
}

// PollOnce advances every mirror by one delta query for date.
func (s *Syncer) PollOnce(ctx context.Context, date model.Date) error {
	for _, num := range s.reg.Numbers() {
		m, ok := s.reg.Get(num)
		if !ok {
			continue
		}
		q := m.QueryFor(date)
		d, err := s.src.Delta(ctx, q)
		if err != nil {
			if errors.Is(err, errs.ErrConversationNotFound) || errors.Is(err, errs.ErrNotMember) {
				// dropped server-side, or we got removed: forget the mirror
				s.reg.Remove(num)
				continue
			}
			return errs.WrapMsg(err, "delta query", "number", num, "date", date.String())
		}
		m.ApplyDelta(d)
	}
	return nil
}

// Run polls today's logs until the context ends.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PollOnce(ctx, model.Today()); err != nil {
				logger.Warnf("[Syncer] poll failed: %v", err)
			}
		}
	}
}
