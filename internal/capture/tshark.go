package capture

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"BurstScope/internal/config"
	"BurstScope/internal/model"
)

// Default filters restricting the capture to application-data packets.
// The BPF variants are used for live capture, the display-filter variants
// when reading from a capture file.
const (
	liveIPFilter    = "udp or (tcp and (((ip[2:2] - ((ip[0]&0xf)<<2)) - ((tcp[12]&0xf0)>>2)) != 0))"
	liveWLANFilter  = "wlan type data subtype qos-data"
	fileIPFilter    = "udp or (tcp and tcp.len > 0)"
	fileWLANFilter  = "wlan and wlan.fc.type_subtype == 40"
)

// Args builds the tshark argument vector for the given configuration. The
// field order matches what the record parser expects: timestamp, source,
// destination, ports (IP mode with ports), length, sequence number (WLAN).
func Args(cfg *config.Config, mode model.Mode, format model.TimeFormat) []string {
	offline := cfg.Capture.ReadFile != ""

	var filter string
	switch {
	case !offline && mode == model.ModeIP:
		filter = liveIPFilter
	case !offline && mode == model.ModeWLAN:
		filter = liveWLANFilter
	case offline && mode == model.ModeIP:
		filter = fileIPFilter
	default:
		filter = fileWLANFilter
	}

	supplied := cfg.Capture.CaptureFilter
	if offline {
		supplied = cfg.Capture.DisplayFilter
	}
	if supplied != "" {
		filter = fmt.Sprintf("(%s) and (%s)", filter, supplied)
	}

	var args []string
	if offline {
		args = append(args, "-r", cfg.Capture.ReadFile, "-Y", filter)
	} else {
		args = append(args, "-n", "-f", filter)
	}

	if cfg.Capture.Interface != "" {
		args = append(args, "-i", cfg.Capture.Interface)
	}
	if cfg.Capture.WriteCapture != "" {
		args = append(args, "-w", cfg.Capture.WriteCapture, "-P")
	}

	timeField := "frame.time_relative"
	if format == model.TimeEpoch {
		timeField = "frame.time_epoch"
	}
	args = append(args, "-Q", "-l", "-T", "fields", "-e", timeField)

	switch mode {
	case model.ModeWLAN:
		args = append(args,
			"-e", "wlan.sa",
			"-e", "wlan.da",
			"-e", "data.len",
			"-e", "wlan.seq",
		)
	default:
		args = append(args, "-e", "ip.src", "-e", "ip.dst")
		if !cfg.Burst.IgnorePorts {
			args = append(args,
				"-e", "udp.srcport",
				"-e", "tcp.srcport",
				"-e", "udp.dstport",
				"-e", "tcp.dstport",
			)
		}
		args = append(args, "-e", "data.len", "-e", "udp.length", "-e", "tcp.len")
	}

	return args
}

// TsharkSource runs tshark as a subprocess and streams its field lines.
type TsharkSource struct {
	cmd      *exec.Cmd
	lines    chan string
	stopOnce sync.Once

	mu  sync.Mutex
	err error
}

// NewTsharkSource starts the subprocess. Its stderr is passed through so
// capture warnings stay visible.
func NewTsharkSource(args []string) (*TsharkSource, error) {
	cmd := exec.Command("tshark", args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open tshark stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start tshark: %w", err)
	}
	log.Printf("Started tshark (pid %d)", cmd.Process.Pid)

	s := &TsharkSource{
		cmd:   cmd,
		lines: make(chan string, 64),
	}

	go func() {
		defer close(s.lines)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
		for scanner.Scan() {
			s.lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			s.setErr(fmt.Errorf("reading tshark output: %w", err))
		}
		// Subprocess termination is the normal end of stream; a failed
		// exit is reported but still drains downstream.
		if err := cmd.Wait(); err != nil {
			s.setErr(fmt.Errorf("tshark exited: %w", err))
		}
	}()

	return s, nil
}

// Lines returns the channel of field lines.
func (s *TsharkSource) Lines() <-chan string { return s.lines }

// Err returns the error that ended the stream, if any.
func (s *TsharkSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop forwards SIGTERM to tshark so it flushes and exits; the lines
// channel closes once its stdout drains.
func (s *TsharkSource) Stop() {
	s.stopOnce.Do(func() {
		if s.cmd.Process != nil {
			if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
				log.Printf("Failed to signal tshark: %v", err)
			}
		}
	})
}

func (s *TsharkSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
