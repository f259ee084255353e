package wsserver

import (
	"github.com/google/uuid"

	"github.com/yndnr/ovecore-go/internal/core/clock"
	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// handleSync runs one step of the clock handshake. A request without t1
// is answered with the receipt time; a reply carrying t1 and the echoed
// t2 yields one sample.
func (h *Hub) handleSync(s *Socket, env *domain.Envelope) {
	frame := env.Sync
	if frame.ID == "" {
		if s.clockID == "" {
			s.clockID = uuid.NewString()
		}
		frame.ID = s.clockID
	} else if s.clockID == "" {
		s.clockID = frame.ID
	}

	if frame.T1 == nil || frame.T2 == nil {
		t2 := clock.Now()
		h.sendEnvelope(s, &domain.Envelope{
			AppID: env.AppID,
			Sync:  &domain.SyncFrame{ID: frame.ID, T2: &t2, ServerDiff: h.book.ServerDiff()},
		})
		return
	}

	t3 := clock.Now()
	diff := clock.Sample(*frame.T1, *frame.T2, t3, h.book.ServerDiff())
	n := h.book.Record(frame.ID, diff)
	h.logger.Debug("clock sample", "clock_id", frame.ID, "diff", diff, "pending", n)
}

func (h *Hub) handleSyncResults(s *Socket, env *domain.Envelope) {
	id := s.clockID
	if id == "" {
		h.logger.Debug("ignoring sync results before handshake", "socket", s.id)
		return
	}
	h.book.Upload(id, env.SyncResults)
	h.logger.Debug("clock samples uploaded", "clock_id", id, "pending", h.book.Pending(id))
}

// AggregateClock consumes complete sample sets and broadcasts the
// resulting offsets with the new baseline. Nothing is sent while no set
// is complete.
func (h *Hub) AggregateClock() bool {
	diffs, ok := h.book.Aggregate()
	if !ok {
		return false
	}
	baseline := h.book.Baseline()
	h.dispatch(&domain.Envelope{AppID: domain.CoreAppID, ClockDiff: diffs, ClockBase: &baseline},
		domain.KindClockDiff, nil, nil)
	h.logger.Debug("clock aggregated", "clients", len(diffs), "baseline", baseline)
	return true
}
