package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"dealchain/core/events"
)

const (
	wsWriteTimeout = 10 * time.Second
	streamBatch    = 256
)

// handleEventStream pushes feed records over a websocket, starting after the
// sequence given in ?after=.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		http.Error(w, "event feed unavailable", http.StatusServiceUnavailable)
		return
	}
	var cursor uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, badRequest("after must be a non-negative integer"))
			return
		}
		cursor = parsed
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(conn.CloseRead(r.Context()), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	for {
		changed := s.feed.Changed()
		for _, record := range s.feed.Since(cursor, streamBatch) {
			if err := writeRecord(ctx, conn, record); err != nil {
				return err
			}
			cursor = record.Sequence
		}
		if s.feed.Latest() > cursor {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func writeRecord(ctx context.Context, conn *websocket.Conn, record events.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
