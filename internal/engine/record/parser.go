package record

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"BurstScope/internal/model"
)

// Status tags the outcome of parsing one field line.
type Status int

const (
	// StatusPacket means the line yielded a usable PacketRecord.
	StatusPacket Status = iota
	// StatusSkip means the line carried no application data and is ignored.
	StatusSkip
	// StatusError means the line was malformed and is skipped with a reason.
	StatusError
)

// Result is the tagged outcome of parsing one line.
type Result struct {
	Status Status
	Packet model.PacketRecord
	Err    error
}

// Parser turns capture-tool field lines into PacketRecords. Parsing is
// pure: no state is kept between lines.
type Parser struct {
	mode      model.Mode
	withPorts bool
}

// NewParser creates a parser for the given addressing mode. Ports are only
// expected in IP mode when they are not ignored.
func NewParser(mode model.Mode, ignorePorts bool) *Parser {
	return &Parser{
		mode:      mode,
		withPorts: mode == model.ModeIP && !ignorePorts,
	}
}

// Parse decodes one whitespace-separated field line. Field order follows
// the capture invocation: timestamp, source, destination, [source port,
// destination port,] length(s)[, sequence number].
func (p *Parser) Parse(line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{Status: StatusSkip}
	}

	want := 4 // timestamp, src, dst, length
	if p.withPorts {
		want = 6
	} else if p.mode == model.ModeWLAN {
		want = 5
	}
	// In IP mode one packet can populate two length columns, e.g. data.len
	// next to udp.length or tcp.len when the payload is not dissected
	// further; the extra trailing column is legitimate.
	limit := want
	if p.mode == model.ModeIP {
		limit = want + 1
	}
	if len(fields) < want || len(fields) > limit {
		return parseError(fmt.Errorf("unexpected field count: got %d, want %d", len(fields), want))
	}

	ts, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return parseError(fmt.Errorf("invalid timestamp %q: %w", fields[0], err))
	}

	src, err := p.canonicalAddr(fields[1])
	if err != nil {
		return parseError(fmt.Errorf("invalid source address %q: %w", fields[1], err))
	}
	dst, err := p.canonicalAddr(fields[2])
	if err != nil {
		return parseError(fmt.Errorf("invalid destination address %q: %w", fields[2], err))
	}

	rec := model.PacketRecord{
		Time:    ts,
		SrcAddr: src,
		DstAddr: dst,
	}

	next := 3
	if p.withPorts {
		srcPort, err := parsePort(fields[3])
		if err != nil {
			return parseError(fmt.Errorf("invalid source port %q: %w", fields[3], err))
		}
		dstPort, err := parsePort(fields[4])
		if err != nil {
			return parseError(fmt.Errorf("invalid destination port %q: %w", fields[4], err))
		}
		rec.SrcPort, rec.DstPort, rec.HasPorts = srcPort, dstPort, true
		next = 5
	}

	length, err := strconv.ParseUint(fields[next], 10, 64)
	if err != nil {
		return parseError(fmt.Errorf("invalid length %q: %w", fields[next], err))
	}

	if p.mode == model.ModeWLAN {
		seq, err := strconv.ParseUint(fields[next+1], 10, 16)
		if err != nil {
			return parseError(fmt.Errorf("invalid sequence number %q: %w", fields[next+1], err))
		}
		rec.Seq, rec.HasSeq = uint16(seq), true
	} else if len(fields) > next+1 {
		// The payload length comes first; the redundant column still has
		// to be well formed.
		if _, err := strconv.ParseUint(fields[next+1], 10, 64); err != nil {
			return parseError(fmt.Errorf("invalid length %q: %w", fields[next+1], err))
		}
	}

	if length == 0 {
		// Passed the capture filter but carries no application data.
		return Result{Status: StatusSkip}
	}
	rec.Length = length

	return Result{Status: StatusPacket, Packet: rec}
}

// canonicalAddr normalizes an address so equal endpoints always compare
// equal: canonical IP text in IP mode, lowercase colon-form MAC in WLAN mode.
func (p *Parser) canonicalAddr(s string) (string, error) {
	if p.mode == model.ModeWLAN {
		hw, err := net.ParseMAC(s)
		if err != nil {
			return "", err
		}
		return hw.String(), nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return "", fmt.Errorf("not an IP address")
	}
	return ip.String(), nil
}

func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(port), nil
}

func parseError(err error) Result {
	return Result{Status: StatusError, Err: err}
}
