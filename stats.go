package serialterm

import "go.uber.org/atomic"

// Stats is a point-in-time copy of a session's traffic counters. Counters
// accumulate across reconnects.
type Stats struct {
	BytesRead     int64
	BytesWritten  int64
	LinesReceived int64
	LinesDropped  int64
	CommandsSent  int64
}

type sessionStats struct {
	bytesRead     atomic.Int64
	bytesWritten  atomic.Int64
	linesReceived atomic.Int64
	linesDropped  atomic.Int64
	commandsSent  atomic.Int64
}

// Stats returns the current traffic counters.
func (s *Session) Stats() Stats {
	return Stats{
		BytesRead:     s.stats.bytesRead.Load(),
		BytesWritten:  s.stats.bytesWritten.Load(),
		LinesReceived: s.stats.linesReceived.Load(),
		LinesDropped:  s.stats.linesDropped.Load(),
		CommandsSent:  s.stats.commandsSent.Load(),
	}
}
