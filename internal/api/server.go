package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"BurstScope/internal/pipeline"
)

// Server exposes live pipeline state over HTTP so a capture session can
// be observed without touching the row output.
type Server struct {
	srv      *http.Server
	pipeline *pipeline.Pipeline
}

// NewServer builds the router and the HTTP server.
func NewServer(listenAddr string, p *pipeline.Pipeline) *Server {
	s := &Server{pipeline: p}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/stats", s.statsHandler).Methods("GET")
	r.HandleFunc("/api/v1/bursts/recent", s.recentHandler).Methods("GET")

	s.srv = &http.Server{
		Addr:         listenAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		log.Printf("Stats API listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Stats API server error: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.pipeline.Stats())
}

func (s *Server) recentHandler(w http.ResponseWriter, r *http.Request) {
	type burstRow struct {
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

	recent := s.pipeline.Recent()
	rows := make([]burstRow, 0, len(recent))
	for _, rec := range recent {
		row := burstRow{
			Num:        rec.Num,
			SrcAddr:    rec.Key.SrcAddr,
			DstAddr:    rec.Key.DstAddr,
			Start:      rec.Start,
			End:        rec.End,
			ReportTime: rec.ReportTime,
			Packets:    rec.Packets,
			Bytes:      rec.Bytes,
		}
		// Port columns follow the flow key, not the port values; port 0
		// is legitimate.
		if rec.Key.WithPorts {
			srcPort, dstPort := rec.Key.SrcPort, rec.Key.DstPort
			row.SrcPort, row.DstPort = &srcPort, &dstPort
		}
		rows = append(rows, row)
	}
	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
