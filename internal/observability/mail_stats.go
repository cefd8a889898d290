package observability

import (
	"sync/atomic"
	"time"
)

// MailStats keeps in-process delivery counters for the health endpoint.
type MailStats struct {
	sent     atomic.Uint64
	failed   atomic.Uint64
	rejected atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewMailStats() *MailStats {
	return &MailStats{}
}

func (m *MailStats) IncSent() {
	m.sent.Add(1)
}

func (m *MailStats) IncFailed() {
	m.failed.Add(1)
}

// IncRejected counts sends refused by an open circuit.
func (m *MailStats) IncRejected() {
	m.rejected.Add(1)
}

func (m *MailStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type MailStatsSnapshot struct {
	Sent            uint64        `json:"sent"`
	Failed          uint64        `json:"failed"`
	Rejected        uint64        `json:"rejected"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	MaxDuration     time.Duration `json:"max_duration_ns"`
}

func (m *MailStats) Snapshot() MailStatsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return MailStatsSnapshot{
		Sent:            m.sent.Load(),
		Failed:          m.failed.Load(),
		Rejected:        m.rejected.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
