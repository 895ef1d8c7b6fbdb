package burst

import (
	"sort"
	"sync"

	"BurstScope/internal/engine/record"
	"BurstScope/internal/engine/wlan"
	"BurstScope/internal/model"
)

// Clock returns the current time in the capture timebase, fractional
// seconds. Tests substitute a simulated clock.
type Clock func() float64

// Config carries the segmentation parameters for a Table.
type Config struct {
	Inactive     float64 // inactivity threshold, seconds
	Mode         model.Mode
	IgnorePorts  bool
	Guess        bool
	MaxDeviation uint16
	Average      wlan.AveragePolicy
	Clock        Clock
}

// Table owns every open tracker, at most one per flow key. All mutation
// happens under a single mutex, so a packet and a timer tick never
// interleave transitions on the same tracker; a packet that arrives while
// a tick is pending closes its burst on the packet path first.
type Table struct {
	mu    sync.Mutex
	flows map[string]*Tracker
	cfg   Config
}

// NewTable creates an empty flow table.
func NewTable(cfg Config) *Table {
	return &Table{
		flows: make(map[string]*Tracker),
		cfg:   cfg,
	}
}

// Ingest applies one packet and returns the burst it closed, if any.
func (tb *Table) Ingest(rec *model.PacketRecord) *model.BurstRecord {
	key := record.FlowKeyOf(rec, tb.cfg.IgnorePorts)
	now := tb.cfg.Clock()

	tb.mu.Lock()
	defer tb.mu.Unlock()

	id := key.String()
	tr, ok := tb.flows[id]
	if !ok {
		tr = NewTracker(key, rec, tb.newEstimator())
		tr.seenAt = now
		tb.flows[id] = tr
		return nil
	}

	closed := tr.Observe(rec, tb.cfg.Inactive)
	tr.seenAt = now
	if closed != nil {
		closed.ReportTime = now
	}
	return closed
}

// Tick closes every burst whose flow has been silent for longer than the
// inactivity threshold. Staleness is judged on arrival time, not capture
// timestamps, so replaying a file does not split bursts on clock skew.
func (tb *Table) Tick(now float64) []*model.BurstRecord {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	var closed []*model.BurstRecord
	for id, tr := range tb.flows {
		if now-tr.seenAt > tb.cfg.Inactive {
			rec := tr.snapshot()
			rec.ReportTime = now
			closed = append(closed, rec)
			delete(tb.flows, id)
		}
	}
	sortByStart(closed)
	return closed
}

// Drain closes every remaining burst at end of stream, ordered by
// ascending first-packet time.
func (tb *Table) Drain() []*model.BurstRecord {
	now := tb.cfg.Clock()

	tb.mu.Lock()
	defer tb.mu.Unlock()

	closed := make([]*model.BurstRecord, 0, len(tb.flows))
	for id, tr := range tb.flows {
		rec := tr.snapshot()
		rec.ReportTime = now
		closed = append(closed, rec)
		delete(tb.flows, id)
	}
	sortByStart(closed)
	return closed
}

// Len returns the number of open flows.
func (tb *Table) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.flows)
}

func (tb *Table) newEstimator() *wlan.Estimator {
	if tb.cfg.Mode != model.ModeWLAN {
		return nil
	}
	return wlan.NewEstimator(tb.cfg.Guess, tb.cfg.MaxDeviation, tb.cfg.Average)
}

func sortByStart(recs []*model.BurstRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Start < recs[j].Start })
}
