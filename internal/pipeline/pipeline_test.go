package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BurstScope/internal/capture"
	"BurstScope/internal/config"
	"BurstScope/internal/model"
	"BurstScope/internal/output"
)

// manualClock lets tests drive the scheduler timebase.
type manualClock struct {
	mu  sync.Mutex
	now float64
}

func (c *manualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(v float64) {
	c.mu.Lock()
	c.now = v
	c.mu.Unlock()
}

// collectWriter records written bursts and signals each one on a channel.
type collectWriter struct {
	mu   sync.Mutex
	recs []model.BurstRecord
	ch   chan model.BurstRecord
}

func newCollectWriter() *collectWriter {
	return &collectWriter{ch: make(chan model.BurstRecord, 16)}
}

func (w *collectWriter) Write(rec *model.BurstRecord) error {
	w.mu.Lock()
	w.recs = append(w.recs, *rec)
	w.mu.Unlock()
	w.ch <- *rec
	return nil
}

func (w *collectWriter) Close() error { return nil }

func (w *collectWriter) all() []model.BurstRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.BurstRecord, len(w.recs))
	copy(out, w.recs)
	return out
}

func TestPipelineEndToEnd(t *testing.T) {
	clk := &manualClock{}
	sink := newCollectWriter()

	p := New(Options{
		Mode:         model.ModeIP,
		Inactive:     time.Second,
		TickInterval: time.Hour, // only packet-driven and drain closures
		Clock:        clk.Now,
		Filter:       output.NewFilter(config.FilterConfig{}),
		RowWriters:   []output.Writer{sink},
	})

	input := strings.Join([]string{
		"0.000 10.0.0.1 10.0.0.9 1000 80 100",
		"0.100 10.0.0.1 10.0.0.9 1000 80 100",
		"0.050 10.0.0.2 10.0.0.9 2000 80 250",
		"not a valid record line x",
		"",
		"5.000 10.0.0.1 10.0.0.9 1000 80 400",
	}, "\n")

	require.NoError(t, p.Run(capture.NewReaderSource(strings.NewReader(input))))

	recs := sink.all()
	require.Len(t, recs, 3)

	// The gap at 5.0 closes the first flow's burst while the stream is
	// still running.
	assert.Equal(t, uint64(1), recs[0].Num)
	assert.Equal(t, 0.0, recs[0].Start)
	assert.Equal(t, 0.1, recs[0].End)
	assert.Equal(t, uint64(2), recs[0].Packets)
	assert.Equal(t, uint64(200), recs[0].Bytes)

	// Drain emits the rest ordered by ascending first-packet time.
	assert.Equal(t, uint64(2), recs[1].Num)
	assert.Equal(t, 0.05, recs[1].Start)
	assert.Equal(t, uint64(250), recs[1].Bytes)
	assert.Equal(t, uint64(3), recs[2].Num)
	assert.Equal(t, 5.0, recs[2].Start)
	assert.Equal(t, uint64(400), recs[2].Bytes)

	stats := p.Stats()
	assert.Equal(t, uint64(4), stats.PacketsIngested)
	assert.Equal(t, uint64(1), stats.ParseErrors)
	assert.Equal(t, uint64(1), stats.RecordsSkipped)
	assert.Equal(t, uint64(3), stats.BurstsClosed)
	assert.Equal(t, uint64(3), stats.BurstsReported)
	assert.Equal(t, 0, stats.OpenFlows)
}

func TestPipelineTimerFlushesSilentFlow(t *testing.T) {
	clk := &manualClock{}
	sink := newCollectWriter()

	p := New(Options{
		Mode:         model.ModeIP,
		Inactive:     time.Second,
		TickInterval: 5 * time.Millisecond,
		Clock:        clk.Now,
		RowWriters:   []output.Writer{sink},
	})

	pr, pw := io.Pipe()
	src := capture.NewReaderSource(pr)

	done := make(chan error, 1)
	go func() { done <- p.Run(src) }()

	_, err := io.WriteString(pw, "0.000 10.0.0.1 10.0.0.9 1000 80 100\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return p.Stats().PacketsIngested == 1
	}, time.Second, 5*time.Millisecond)

	// The flow goes silent and no further input ever arrives; the timer
	// path must still flush it.
	clk.Set(2.0)

	select {
	case rec := <-sink.ch:
		assert.Equal(t, uint64(1), rec.Packets)
		assert.Equal(t, uint64(100), rec.Bytes)
		assert.Equal(t, 2.0, rec.ReportTime)
	case <-time.After(2 * time.Second):
		t.Fatal("Timer path never flushed the silent flow")
	}

	require.NoError(t, pw.Close())
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), p.Stats().BurstsReported)
}

func TestPipelineNumbersAfterFiltering(t *testing.T) {
	clk := &manualClock{}
	sink := newCollectWriter()
	min := uint64(200)

	p := New(Options{
		Mode:         model.ModeIP,
		Inactive:     time.Second,
		TickInterval: time.Hour,
		Clock:        clk.Now,
		Filter:       output.NewFilter(config.FilterConfig{MinBytes: &min}),
		RowWriters:   []output.Writer{sink},
	})

	input := strings.Join([]string{
		"0.000 10.0.0.1 10.0.0.9 1000 80 100",
		"0.100 10.0.0.2 10.0.0.9 2000 80 300",
		"0.200 10.0.0.3 10.0.0.9 3000 80 250",
	}, "\n")

	require.NoError(t, p.Run(capture.NewReaderSource(strings.NewReader(input))))

	recs := sink.all()
	require.Len(t, recs, 2, "the 100-byte burst is filtered out")
	assert.Equal(t, uint64(1), recs[0].Num)
	assert.Equal(t, uint64(300), recs[0].Bytes)
	assert.Equal(t, uint64(2), recs[1].Num)
	assert.Equal(t, uint64(250), recs[1].Bytes)

	stats := p.Stats()
	assert.Equal(t, uint64(3), stats.BurstsClosed)
	assert.Equal(t, uint64(2), stats.BurstsReported)
}

// orderedSink records bursts without any channel signaling, for tests
// that emit too many bursts for collectWriter's buffer.
type orderedSink struct {
	mu   sync.Mutex
	recs []model.BurstRecord
}

func (s *orderedSink) Write(rec *model.BurstRecord) error {
	s.mu.Lock()
	s.recs = append(s.recs, *rec)
	s.mu.Unlock()
	return nil
}

func (s *orderedSink) Close() error { return nil }

func TestPipelineMixedClosurePathsKeepFlowOrder(t *testing.T) {
	// One flow, many bursts. A background goroutine keeps advancing the
	// scheduler clock so some bursts close on the timer path while others
	// close on the packet path; whichever path closes a burst, the flow's
	// bursts must come out in ascending start-time order.
	const burstCount = 200

	clk := &manualClock{}
	sink := &orderedSink{}

	p := New(Options{
		Mode:         model.ModeIP,
		Inactive:     time.Second,
		TickInterval: time.Millisecond,
		Clock:        clk.Now,
		RowWriters:   []output.Writer{sink},
	})

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- p.Run(capture.NewReaderSource(pr)) }()

	stop := make(chan struct{})
	var clockWg sync.WaitGroup
	clockWg.Add(1)
	go func() {
		defer clockWg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				clk.Set(clk.Now() + 3)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	for i := 0; i < burstCount; i++ {
		_, err := fmt.Fprintf(pw, "%d.0 10.0.0.1 10.0.0.9 1000 80 100\n", i*10)
		require.NoError(t, err)
	}
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)
	close(stop)
	clockWg.Wait()

	recs := sink.recs
	require.Len(t, recs, burstCount)
	for i, rec := range recs {
		assert.Equal(t, uint64(i+1), rec.Num)
		assert.Equal(t, float64(i*10), rec.Start)
	}
}

type failingRowWriter struct{}

func (failingRowWriter) Write(*model.BurstRecord) error {
	return errors.New("disk full")
}

func (failingRowWriter) Close() error { return nil }

func TestPipelineRowWriterFailureIsFatal(t *testing.T) {
	clk := &manualClock{}

	p := New(Options{
		Mode:         model.ModeIP,
		Inactive:     time.Second,
		TickInterval: time.Hour,
		Clock:        clk.Now,
		RowWriters:   []output.Writer{failingRowWriter{}},
	})

	input := "0.000 10.0.0.1 10.0.0.9 1000 80 100\n"
	err := p.Run(capture.NewReaderSource(strings.NewReader(input)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPipelineRecentRing(t *testing.T) {
	clk := &manualClock{}
	sink := newCollectWriter()

	p := New(Options{
		Mode:         model.ModeIP,
		Inactive:     time.Second,
		TickInterval: time.Hour,
		Clock:        clk.Now,
		RowWriters:   []output.Writer{sink},
	})

	input := strings.Join([]string{
		"0.000 10.0.0.1 10.0.0.9 1000 80 100",
		"0.100 10.0.0.2 10.0.0.9 2000 80 200",
	}, "\n")

	require.NoError(t, p.Run(capture.NewReaderSource(strings.NewReader(input))))

	recent := p.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(1), recent[0].Num)
	assert.Equal(t, uint64(2), recent[1].Num)
}
