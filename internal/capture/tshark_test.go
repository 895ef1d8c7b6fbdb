package capture

import (
	"strings"
	"testing"

	"BurstScope/internal/config"
	"BurstScope/internal/model"
)

func argString(cfg *config.Config, mode model.Mode, format model.TimeFormat) string {
	return strings.Join(Args(cfg, mode, format), " ")
}

func TestArgsLiveIP(t *testing.T) {
	var cfg config.Config
	args := argString(&cfg, model.ModeIP, model.TimeRelative)

	if !strings.Contains(args, "-f "+liveIPFilter) {
		t.Errorf("Expected the live IP capture filter, got: %s", args)
	}
	if !strings.Contains(args, "-T fields") {
		t.Errorf("Expected field output, got: %s", args)
	}
	if !strings.Contains(args, "-e frame.time_relative") {
		t.Errorf("Expected relative timestamps, got: %s", args)
	}
	for _, field := range []string{"ip.src", "ip.dst", "udp.srcport", "tcp.dstport", "tcp.len"} {
		if !strings.Contains(args, "-e "+field) {
			t.Errorf("Expected field %s, got: %s", field, args)
		}
	}
}

func TestArgsIgnorePortsDropsPortFields(t *testing.T) {
	var cfg config.Config
	cfg.Burst.IgnorePorts = true
	args := argString(&cfg, model.ModeIP, model.TimeRelative)

	if strings.Contains(args, "srcport") || strings.Contains(args, "dstport") {
		t.Errorf("Port fields must be omitted when ports are ignored: %s", args)
	}
}

func TestArgsOfflineWLAN(t *testing.T) {
	var cfg config.Config
	cfg.Capture.ReadFile = "session.pcapng"
	args := argString(&cfg, model.ModeWLAN, model.TimeEpoch)

	if !strings.Contains(args, "-r session.pcapng") {
		t.Errorf("Expected file read, got: %s", args)
	}
	if !strings.Contains(args, "-Y "+fileWLANFilter) {
		t.Errorf("Expected the WLAN display filter, got: %s", args)
	}
	if !strings.Contains(args, "-e frame.time_epoch") {
		t.Errorf("Expected epoch timestamps, got: %s", args)
	}
	for _, field := range []string{"wlan.sa", "wlan.da", "wlan.seq"} {
		if !strings.Contains(args, "-e "+field) {
			t.Errorf("Expected field %s, got: %s", field, args)
		}
	}
	if strings.Contains(args, "ip.src") {
		t.Errorf("IP fields have no place in WLAN mode: %s", args)
	}
}

func TestArgsMergesUserFilter(t *testing.T) {
	var cfg config.Config
	cfg.Capture.CaptureFilter = "host 10.0.0.1"
	args := Args(&cfg, model.ModeIP, model.TimeRelative)

	want := "(" + liveIPFilter + ") and (host 10.0.0.1)"
	found := false
	for _, a := range args {
		if a == want {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected merged filter %q in %v", want, args)
	}
}

func TestArgsWriteCapture(t *testing.T) {
	var cfg config.Config
	cfg.Capture.WriteCapture = "out.pcapng"
	args := argString(&cfg, model.ModeIP, model.TimeRelative)

	if !strings.Contains(args, "-w out.pcapng -P") {
		t.Errorf("Expected capture mirroring, got: %s", args)
	}
}

func TestReaderSource(t *testing.T) {
	src := NewReaderSource(strings.NewReader("line one\nline two\n"))

	var lines []string
	for line := range src.Lines() {
		lines = append(lines, line)
	}
	if len(lines) != 2 || lines[0] != "line one" || lines[1] != "line two" {
		t.Errorf("Unexpected lines: %v", lines)
	}
	if src.Err() != nil {
		t.Errorf("Unexpected error: %v", src.Err())
	}
}
