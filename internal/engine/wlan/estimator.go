package wlan

import (
	"fmt"

	"BurstScope/internal/model"
)

// seqSpace is the size of the 802.11 sequence number space.
const seqSpace = 4096

// AveragePolicy selects which frame-length history feeds loss estimates.
type AveragePolicy int

const (
	// AverageBurst averages over real frames of the current burst, falling
	// back to the flow history when the burst just opened.
	AverageBurst AveragePolicy = iota
	// AverageFlow always averages over the flow's whole history.
	AverageFlow
)

// ParseAveragePolicy converts a configuration string into an AveragePolicy.
func ParseAveragePolicy(s string) (AveragePolicy, error) {
	switch s {
	case "", "burst":
		return AverageBurst, nil
	case "flow":
		return AverageFlow, nil
	default:
		return AverageBurst, fmt.Errorf("unknown wlan average policy: %q", s)
	}
}

// Estimator tracks 802.11 sequence numbers for one flow. Monitor-mode
// devices silently drop some QoS data frames; a jump in the sequence
// number reveals how many, and the estimator synthesizes stand-in records
// for them so bursts are not undercounted.
type Estimator struct {
	guess        bool
	maxDeviation uint16
	policy       AveragePolicy

	seeded   bool
	lastSeq  uint16
	lastTime float64

	burstLenSum   uint64
	burstLenCount uint64
	flowLenSum    uint64
	flowLenCount  uint64
}

// NewEstimator creates an estimator for a single flow.
func NewEstimator(guess bool, maxDeviation uint16, policy AveragePolicy) *Estimator {
	return &Estimator{
		guess:        guess,
		maxDeviation: maxDeviation,
		policy:       policy,
	}
}

// Advance folds the incoming real frame into the sequence state and
// returns synthetic records for any frames lost before it. Synthetic
// records copy the frame's endpoints, carry the running average length
// and timestamps linearly interpolated strictly between the previous and
// current frame. A gap beyond the deviation threshold is treated as a
// wraparound or capture restart: state reseeds and nothing is synthesized.
func (e *Estimator) Advance(rec *model.PacketRecord) []model.PacketRecord {
	if !rec.HasSeq {
		return nil
	}

	if !e.seeded {
		e.seeded = true
		e.lastSeq = rec.Seq
		e.lastTime = rec.Time
		e.foldLength(rec.Length)
		return nil
	}

	gap := (uint32(rec.Seq) + seqSpace - uint32(e.lastSeq) - 1) % seqSpace
	prevTime := e.lastTime
	e.lastSeq = rec.Seq
	e.lastTime = rec.Time
	e.foldLength(rec.Length)

	if gap == 0 || !e.guess || gap > uint32(e.maxDeviation) {
		return nil
	}

	avg := e.averageLength()
	span := rec.Time - prevTime
	synth := make([]model.PacketRecord, 0, gap)
	for i := uint32(1); i <= gap; i++ {
		synth = append(synth, model.PacketRecord{
			Time:      prevTime + span*float64(i)/float64(gap+1),
			SrcAddr:   rec.SrcAddr,
			DstAddr:   rec.DstAddr,
			Length:    avg,
			Synthetic: true,
		})
	}
	return synth
}

// ResetBurst starts a new burst-local length history seeded with the
// frame that opened the burst. Flow history is retained.
func (e *Estimator) ResetBurst(seedLen uint64) {
	e.burstLenSum = seedLen
	e.burstLenCount = 1
}

func (e *Estimator) foldLength(length uint64) {
	e.burstLenSum += length
	e.burstLenCount++
	e.flowLenSum += length
	e.flowLenCount++
}

// averageLength is computed after the current frame has been folded in.
// Under the burst policy a burst counts as just opened until it has seen
// at least two frames before the one revealing the gap; until then the
// flow history is used instead.
func (e *Estimator) averageLength() uint64 {
	if e.policy == AverageBurst && e.burstLenCount > 2 {
		return e.burstLenSum / e.burstLenCount
	}
	if e.flowLenCount == 0 {
		return 0
	}
	return e.flowLenSum / e.flowLenCount
}
