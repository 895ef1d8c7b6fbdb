package burst

import (
	"BurstScope/internal/engine/wlan"
	"BurstScope/internal/model"
)

// Tracker accumulates one open burst for a flow. There is no closed
// state: closing a burst means snapshotting the tracker and either
// removing it or reseeding it with the packet that opened the next burst.
type Tracker struct {
	Key     model.FlowKey
	Start   float64
	Last    float64
	Packets uint64
	Bytes   uint64

	est *wlan.Estimator

	// seenAt is the scheduler clock reading when a packet last arrived,
	// used by timer-driven closure.
	seenAt float64
}

// NewTracker opens a burst with its first packet. The first frame of a
// flow is accepted unconditionally and seeds the WLAN sequence state.
func NewTracker(key model.FlowKey, rec *model.PacketRecord, est *wlan.Estimator) *Tracker {
	if est != nil {
		est.Advance(rec)
	}
	return &Tracker{
		Key:     key,
		Start:   rec.Time,
		Last:    rec.Time,
		Packets: 1,
		Bytes:   rec.Length,
		est:     est,
	}
}

// Observe folds a packet into the burst. When the packet's gap from the
// previous one strictly exceeds the inactivity threshold the current
// burst is returned closed and the same packet opens the next one; a gap
// exactly equal to the threshold stays in the burst.
func (t *Tracker) Observe(rec *model.PacketRecord, inactive float64) *model.BurstRecord {
	var synth []model.PacketRecord
	if t.est != nil {
		synth = t.est.Advance(rec)
	}

	if rec.Time-t.Last > inactive {
		closed := t.snapshot()
		t.Start, t.Last = rec.Time, rec.Time
		t.Packets, t.Bytes = 1, rec.Length
		if t.est != nil {
			// Frames guessed across a burst boundary would span the
			// silence that separates the bursts; drop them and keep only
			// the real frame.
			t.est.ResetBurst(rec.Length)
		}
		return closed
	}

	for i := range synth {
		t.fold(&synth[i])
	}
	t.fold(rec)
	return nil
}

// fold accepts one record. Last never decreases: synthetic timestamps lie
// strictly between the two real frames that revealed the gap.
func (t *Tracker) fold(rec *model.PacketRecord) {
	if rec.Time > t.Last {
		t.Last = rec.Time
	}
	t.Packets++
	t.Bytes += rec.Length
}

func (t *Tracker) snapshot() *model.BurstRecord {
	return &model.BurstRecord{
		Key:     t.Key,
		Start:   t.Start,
		End:     t.Last,
		Packets: t.Packets,
		Bytes:   t.Bytes,
	}
}
