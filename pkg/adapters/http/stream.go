package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// SubscribeEvents handles GET /events (SSE).
// With ?since=N the events after sequence N are replayed before live ones.
// Without it the stream starts at the current end of the log.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	log := s.Engine.Events()
	since := uint64(log.Len())
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			s.badRequest(w, r, fmt.Errorf("since must be an unsigned integer"))
			return
		}
		since = n
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	// Subscribe before replaying so nothing falls between the two.
	live, cancel := log.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	last := since
	send := func(seq uint64, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("SSE: Event encode failed", "seq", seq, "err", err)
			return
		}
		fmt.Fprintf(w, "id: %d\ndata: %s\n\n", seq, data)
		flusher.Flush()
	}

	for _, e := range log.Since(since) {
		send(e.Seq, e)
		last = e.Seq
	}

	s.logger.Debug("SSE: Client subscribed", "since", since)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: Client disconnected")
			return
		case e, ok := <-live:
			if !ok {
				return
			}
			if e.Seq <= last {
				continue
			}
			send(e.Seq, e)
			last = e.Seq
		}
	}
}
