package pipeline

import (
	"log"
	"sync"
	"time"

	"BurstScope/internal/capture"
	"BurstScope/internal/engine/burst"
	"BurstScope/internal/engine/record"
	"BurstScope/internal/engine/wlan"
	"BurstScope/internal/model"
	"BurstScope/internal/output"
)

const recentBursts = 64

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	PacketsIngested uint64 `json:"packets_ingested"`
	RecordsSkipped  uint64 `json:"records_skipped"`
	ParseErrors     uint64 `json:"parse_errors"`
	OpenFlows       int    `json:"open_flows"`
	BurstsClosed    uint64 `json:"bursts_closed"`
	BurstsReported  uint64 `json:"bursts_reported"`
}

// Options assembles a pipeline.
type Options struct {
	Mode         model.Mode
	IgnorePorts  bool
	Inactive     time.Duration
	TickInterval time.Duration
	Guess        bool
	MaxDeviation uint16
	Average      wlan.AveragePolicy
	TimeFormat   model.TimeFormat

	// Clock overrides the report/scheduler clock; when nil it is derived
	// from TimeFormat. Tests substitute a simulated clock.
	Clock burst.Clock

	Filter *output.Filter

	// RowWriters render the primary analysis output; a failed write aborts
	// the run (silently dropping rows is worse than stopping).
	RowWriters []output.Writer
	// ExportWriters are best-effort; failures are logged.
	ExportWriters []output.Writer
}

// Pipeline coordinates ingestion with the timeout scheduler: one
// goroutine blocks on the capture source, one ticks the flow table, one
// filters and fans out closed bursts. The three meet only at the
// mutex-guarded table and the burst channel.
type Pipeline struct {
	opts   Options
	parser *record.Parser
	table  *burst.Table
	clock  burst.Clock

	bursts chan *model.BurstRecord
	done   chan struct{}

	// closeMu spans burst closure and the channel send, so each flow's
	// bursts enter the queue in the order they were closed.
	closeMu sync.Mutex

	counter uint64

	mu      sync.Mutex
	stats   Stats
	recent  []model.BurstRecord
	failure error
}

// New creates a pipeline from validated options.
func New(opts Options) *Pipeline {
	clock := opts.Clock
	if clock == nil {
		clock = defaultClock(opts.TimeFormat)
	}

	p := &Pipeline{
		opts:   opts,
		parser: record.NewParser(opts.Mode, opts.IgnorePorts),
		clock:  clock,
		bursts: make(chan *model.BurstRecord, 100),
		done:   make(chan struct{}),
	}
	p.table = burst.NewTable(burst.Config{
		Inactive:     opts.Inactive.Seconds(),
		Mode:         opts.Mode,
		IgnorePorts:  opts.IgnorePorts,
		Guess:        opts.Guess,
		MaxDeviation: opts.MaxDeviation,
		Average:      opts.Average,
		Clock:        clock,
	})
	return p
}

// defaultClock matches the timebase of the capture timestamps: seconds
// since pipeline start for relative captures, UNIX seconds for epoch.
func defaultClock(format model.TimeFormat) burst.Clock {
	if format == model.TimeEpoch {
		return func() float64 {
			return float64(time.Now().UnixNano()) / float64(time.Second)
		}
	}
	start := time.Now()
	return func() float64 {
		return time.Since(start).Seconds()
	}
}

// Run processes the source until it is exhausted or a row writer fails,
// then drains every open burst. It returns the first fatal error.
func (p *Pipeline) Run(src capture.Source) error {
	var emitWg, tickWg sync.WaitGroup

	emitWg.Add(1)
	go func() {
		defer emitWg.Done()
		for rec := range p.bursts {
			p.emit(rec, src)
		}
	}()

	tickWg.Add(1)
	go func() {
		defer tickWg.Done()
		ticker := time.NewTicker(p.opts.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.closeMu.Lock()
				for _, rec := range p.table.Tick(p.clock()) {
					p.bursts <- rec
				}
				p.closeMu.Unlock()
			case <-p.done:
				return
			}
		}
	}()

	for line := range src.Lines() {
		res := p.parser.Parse(line)
		switch res.Status {
		case record.StatusSkip:
			p.count(func(s *Stats) { s.RecordsSkipped++ })
		case record.StatusError:
			log.Printf("Skipping malformed record: %v", res.Err)
			p.count(func(s *Stats) { s.ParseErrors++ })
		case record.StatusPacket:
			p.count(func(s *Stats) { s.PacketsIngested++ })
			p.closeMu.Lock()
			if closed := p.table.Ingest(&res.Packet); closed != nil {
				p.bursts <- closed
			}
			p.closeMu.Unlock()
		}
	}

	// End of stream: cancel the timer, then force out every open burst.
	close(p.done)
	tickWg.Wait()
	for _, rec := range p.table.Drain() {
		p.bursts <- rec
	}
	close(p.bursts)
	emitWg.Wait()

	if err := p.failureErr(); err != nil {
		return err
	}
	return src.Err()
}

// emit numbers, filters and fans out one closed burst. Numbering happens
// after filtering so every writer sees the same dense counter.
func (p *Pipeline) emit(rec *model.BurstRecord, src capture.Source) {
	p.count(func(s *Stats) { s.BurstsClosed++ })

	if p.failureErr() != nil {
		return
	}
	if p.opts.Filter != nil && !p.opts.Filter.Include(rec) {
		return
	}

	p.counter++
	rec.Num = p.counter

	p.mu.Lock()
	p.stats.BurstsReported++
	p.recent = append(p.recent, *rec)
	if len(p.recent) > recentBursts {
		p.recent = p.recent[1:]
	}
	p.mu.Unlock()

	for _, w := range p.opts.RowWriters {
		if err := w.Write(rec); err != nil {
			p.fail(err)
			src.Stop()
			return
		}
	}
	for _, w := range p.opts.ExportWriters {
		if err := w.Write(rec); err != nil {
			log.Printf("Export write failed: %v", err)
		}
	}
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	s := p.stats
	p.mu.Unlock()
	s.OpenFlows = p.table.Len()
	return s
}

// Recent returns the most recently reported bursts, oldest first.
func (p *Pipeline) Recent() []model.BurstRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.BurstRecord, len(p.recent))
	copy(out, p.recent)
	return out
}

func (p *Pipeline) count(f func(*Stats)) {
	p.mu.Lock()
	f(&p.stats)
	p.mu.Unlock()
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	if p.failure == nil {
		p.failure = err
	}
	p.mu.Unlock()
}

func (p *Pipeline) failureErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}
