package server

import (
	"sync/atomic"
	"time"
)

// RuntimeStats are the connection-level numbers reported by INFO
type RuntimeStats struct {
	Uptime           time.Duration
	ConnectedClients int64
	TotalConnections int64
	TotalCommands    int64
}

// StatsProvider supplies runtime statistics to the engine
type StatsProvider interface {
	Snapshot() RuntimeStats
}

// Stats counts connections and commands. It is updated by the Server and read by INFO
type Stats struct {
	startedAt        time.Time
	connected        atomic.Int64
	totalConnections atomic.Int64
	totalCommands    atomic.Int64
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) clientConnected() {
	s.connected.Add(1)
	s.totalConnections.Add(1)
}

func (s *Stats) clientDisconnected() {
	s.connected.Add(-1)
}

func (s *Stats) commandProcessed() {
	s.totalCommands.Add(1)
}

// Snapshot returns the current counters
func (s *Stats) Snapshot() RuntimeStats {
	return RuntimeStats{
		Uptime:           time.Since(s.startedAt),
		ConnectedClients: s.connected.Load(),
		TotalConnections: s.totalConnections.Load(),
		TotalCommands:    s.totalCommands.Load(),
	}
}
