package capture

import (
	"bufio"
	"io"
)

// Source yields decoded field lines from the external capture tool, one
// line per application-data packet. Lines is closed when the source is
// exhausted or the tool exits; Err reports what ended it, if anything.
type Source interface {
	Lines() <-chan string
	Err() error
	Stop()
}

const maxLineSize = 64 * 1024

// ReaderSource adapts any line-oriented reader, e.g. a file of previously
// dumped field lines or a test buffer.
type ReaderSource struct {
	lines chan string
	err   error
	done  chan struct{}
}

// NewReaderSource starts reading r in the background.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(s.lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
		for scanner.Scan() {
			select {
			case s.lines <- scanner.Text():
			case <-s.done:
				return
			}
		}
		s.err = scanner.Err()
	}()
	return s
}

// Lines returns the channel of field lines.
func (s *ReaderSource) Lines() <-chan string { return s.lines }

// Err returns the read error that ended the stream, if any.
func (s *ReaderSource) Err() error { return s.err }

// Stop abandons the reader; the lines channel closes shortly after.
func (s *ReaderSource) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
