package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects how endpoint addresses are interpreted and keyed.
type Mode int

const (
	// ModeIP keys flows by IP address and, unless ignored, transport port.
	ModeIP Mode = iota
	// ModeWLAN keys flows by 802.11 MAC address; records carry sequence numbers.
	ModeWLAN
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ip":
		return ModeIP, nil
	case "wlan":
		return ModeWLAN, nil
	default:
		return ModeIP, fmt.Errorf("unknown capture mode: %q", s)
	}
}

func (m Mode) String() string {
	if m == ModeWLAN {
		return "wlan"
	}
	return "ip"
}

// TimeFormat selects the timebase used for output rows and the report clock.
type TimeFormat int

const (
	// TimeRelative reports times relative to the first packet of the capture.
	TimeRelative TimeFormat = iota
	// TimeEpoch reports times in seconds since the UNIX epoch.
	TimeEpoch
)

// ParseTimeFormat converts a configuration string into a TimeFormat.
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch s {
	case "", "relative":
		return TimeRelative, nil
	case "epoch":
		return TimeEpoch, nil
	default:
		return TimeRelative, fmt.Errorf("unknown time format: %q", s)
	}
}

// PacketRecord holds the metadata of a single decoded application-data
// packet, as produced by the capture tool. Timestamps are fractional
// seconds in the capture timebase (relative or epoch).
type PacketRecord struct {
	Time     float64
	SrcAddr  string // canonical text form: lowercase MAC or canonical IP
	DstAddr  string
	SrcPort  uint16
	DstPort  uint16
	HasPorts bool
	Length   uint64
	Seq      uint16 // 802.11 sequence number, WLAN mode only
	HasSeq   bool

	// Synthetic marks a stand-in record for a frame the monitor-mode
	// device missed, reconstructed from a sequence-number gap.
	Synthetic bool
}

// FlowKey identifies one direction of an endpoint pair. Direction is not
// normalized: src->dst and dst->src are distinct flows.
type FlowKey struct {
	SrcAddr   string
	DstAddr   string
	SrcPort   uint16
	DstPort   uint16
	WithPorts bool
}

// String renders the key as a map key. Identical flows always yield
// byte-identical strings because addresses are stored canonically.
func (k FlowKey) String() string {
	if !k.WithPorts {
		return strings.Join([]string{k.SrcAddr, k.DstAddr}, "-")
	}
	return strings.Join([]string{
		k.SrcAddr,
		strconv.Itoa(int(k.SrcPort)),
		k.DstAddr,
		strconv.Itoa(int(k.DstPort)),
	}, "-")
}

// BurstRecord is the immutable result of one closed burst. Num is the
// process-wide counter assigned after filtering, starting at 1.
type BurstRecord struct {
	Num        uint64
	Key        FlowKey
	Start      float64
	End        float64
	ReportTime float64
	Packets    uint64
	Bytes      uint64
}
