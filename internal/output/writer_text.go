package output

import (
	"fmt"
	"io"

	"BurstScope/internal/model"
)

// TextWriter renders one fixed-width row per burst: counter, source,
// [source port,] destination, [destination port,] start, end, report
// time, packet count, byte total. Port columns are omitted in WLAN and
// ignore-ports modes.
type TextWriter struct {
	w         io.Writer
	withPorts bool
}

// NewTextWriter writes rows to w. The caller owns w; a mirror file is
// closed by whoever opened it.
func NewTextWriter(w io.Writer, withPorts bool) *TextWriter {
	return &TextWriter{w: w, withPorts: withPorts}
}

// Write renders one burst row.
func (tw *TextWriter) Write(rec *model.BurstRecord) error {
	var err error
	if tw.withPorts {
		_, err = fmt.Fprintf(tw.w, "%5d %15s %6d %15s %6d %13.9f %13.9f %13.9f %5d %d\n",
			rec.Num,
			rec.Key.SrcAddr, rec.Key.SrcPort,
			rec.Key.DstAddr, rec.Key.DstPort,
			rec.Start, rec.End, rec.ReportTime,
			rec.Packets, rec.Bytes)
	} else {
		_, err = fmt.Fprintf(tw.w, "%5d %17s %17s %13.9f %13.9f %13.9f %5d %d\n",
			rec.Num,
			rec.Key.SrcAddr, rec.Key.DstAddr,
			rec.Start, rec.End, rec.ReportTime,
			rec.Packets, rec.Bytes)
	}
	if err != nil {
		return fmt.Errorf("failed to write burst row: %w", err)
	}
	return nil
}

// Close is a no-op; TextWriter does not own its destination.
func (tw *TextWriter) Close() error { return nil }
