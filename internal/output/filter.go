package output

import (
	"BurstScope/internal/config"
	"BurstScope/internal/model"
)

// Filter decides whether a burst is reported. Absent bounds impose no
// constraint; all bounds are inclusive.
type Filter struct {
	minBytes   *uint64
	maxBytes   *uint64
	minPackets *uint64
	maxPackets *uint64
	minStart   *float64
}

// NewFilter builds a filter from validated configuration.
func NewFilter(cfg config.FilterConfig) *Filter {
	return &Filter{
		minBytes:   cfg.MinBytes,
		maxBytes:   cfg.MaxBytes,
		minPackets: cfg.MinPackets,
		maxPackets: cfg.MaxPackets,
		minStart:   cfg.MinStartTime,
	}
}

// Include reports whether every configured bound is satisfied.
func (f *Filter) Include(rec *model.BurstRecord) bool {
	if f.minBytes != nil && rec.Bytes < *f.minBytes {
		return false
	}
	if f.maxBytes != nil && rec.Bytes > *f.maxBytes {
		return false
	}
	if f.minPackets != nil && rec.Packets < *f.minPackets {
		return false
	}
	if f.maxPackets != nil && rec.Packets > *f.maxPackets {
		return false
	}
	if f.minStart != nil && rec.Start < *f.minStart {
		return false
	}
	return true
}
