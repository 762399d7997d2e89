package service

import (
	"context"
	"time"

	"github.com/schoolgate/schoolgate/internal/model"
)

// DefaultWatchInterval is how often Watch re-reads the collection when no
// change notification arrives
const DefaultWatchInterval = 5 * time.Second

// Watch streams admin request changes until ctx is cancelled. Every request
// is emitted once up front, then again whenever its stored state changes.
// Delivery may duplicate (a poll racing a wake notification emits twice);
// consumers de-duplicate by ID. wake may be nil; when set, a receive forces
// an immediate re-read instead of waiting out the poll interval.
func (s *AdminRequestService) Watch(ctx context.Context, interval time.Duration, wake <-chan struct{}) <-chan model.AdminRequest {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	out := make(chan model.AdminRequest, 16)

	go func() {
		defer close(out)
		seen := make(map[string]model.AdminRequest)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		emit := func() {
			requests, err := s.requests.List(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error().Err(err).Msg("watch poll failed")
				}
				return
			}
			for _, req := range requests {
				prev, ok := seen[req.ID]
				if ok && !requestChanged(&prev, req) {
					continue
				}
				seen[req.ID] = *req
				select {
				case out <- *req:
				case <-ctx.Done():
					return
				}
			}
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emit()
			case _, ok := <-wake:
				if !ok {
					wake = nil
					continue
				}
				emit()
			}
		}
	}()

	return out
}

// requestChanged compares by value; the model carries pointer fields, so
// plain struct equality would flag every re-read as a change.
func requestChanged(prev, cur *model.AdminRequest) bool {
	if prev.Status != cur.Status || prev.AccountUID != cur.AccountUID {
		return true
	}
	return !timePtrEqual(prev.ApprovedAt, cur.ApprovedAt) ||
		!timePtrEqual(prev.RejectedAt, cur.RejectedAt) ||
		!timePtrEqual(prev.RevokedAt, cur.RevokedAt)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
