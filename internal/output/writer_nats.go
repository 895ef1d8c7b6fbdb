package output

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"BurstScope/internal/config"
	"BurstScope/internal/model"
)

// burstMessage is the export payload published for each burst.
type burstMessage struct {
	Num        uint64  `json:"num"`
	SrcAddr    string  `json:"src_addr"`
	DstAddr    string  `json:"dst_addr"`
	SrcPort    *uint16 `json:"src_port,omitempty"`
	DstPort    *uint16 `json:"dst_port,omitempty"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	ReportTime float64 `json:"report_time"`
	Packets    uint64  `json:"packets"`
	Bytes      uint64  `json:"bytes"`
}

// NATSWriter publishes each emitted burst to a NATS subject so live
// dashboards can follow a capture session.
type NATSWriter struct {
	nc      *nats.Conn
	subject string
}

// NewNATSWriter connects to the NATS server.
func NewNATSWriter(cfg config.NATSConfig) (*NATSWriter, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &NATSWriter{nc: nc, subject: cfg.Subject}, nil
}

// Write serializes the burst to JSON and publishes it.
func (w *NATSWriter) Write(rec *model.BurstRecord) error {
	msg := burstMessage{
		Num:        rec.Num,
		SrcAddr:    rec.Key.SrcAddr,
		DstAddr:    rec.Key.DstAddr,
		Start:      rec.Start,
		End:        rec.End,
		ReportTime: rec.ReportTime,
		Packets:    rec.Packets,
		Bytes:      rec.Bytes,
	}
	if rec.Key.WithPorts {
		srcPort, dstPort := rec.Key.SrcPort, rec.Key.DstPort
		msg.SrcPort, msg.DstPort = &srcPort, &dstPort
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return w.nc.Publish(w.subject, data)
}

// Close drains and closes the NATS connection.
func (w *NATSWriter) Close() error {
	if w.nc != nil {
		w.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
	return nil
}
