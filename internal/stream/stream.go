package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Defaults for the bounded widget/agent event streams. A stream always
// ends within MaxDuration; the client reconnects with the cursor from the
// end event.
const (
	DefaultMaxDuration = 30 * time.Second
	DefaultTick        = 1 * time.Second
	DefaultKeepAlive   = 5 * time.Second
)

const (
	EventReady = "ready"
	EventEnd   = "end"
)

var ErrStreamingUnsupported = errors.New("stream: response writer does not support flushing")

// Event is one server-sent event on the stream.
type Event struct {
	Name string
	Data interface{}
}

// Source yields the events that happened after the cursor, plus the new
// cursor. It is polled once per tick while the stream is open.
type Source interface {
	Events(ctx context.Context, cursor int64) ([]Event, int64, error)
}

type cursorPayload struct {
	Cursor int64 `json:"cursor"`
}

type Streamer struct {
	maxDuration time.Duration
	tick        time.Duration
	keepAlive   time.Duration
}

func New() *Streamer {
	return NewWithConfig(DefaultMaxDuration, DefaultTick, DefaultKeepAlive)
}

func NewWithConfig(maxDuration, tick, keepAlive time.Duration) *Streamer {
	return &Streamer{
		maxDuration: maxDuration,
		tick:        tick,
		keepAlive:   keepAlive,
	}
}

// Serve runs one bounded SSE stream: an immediate ready event, then
// source events as they appear, keep-alive comments in between, and a
// final end event carrying the cursor to resume from. It returns when the
// ceiling is hit or the client goes away.
func (s *Streamer) Serve(ctx context.Context, w http.ResponseWriter, src Source, cursor int64) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if err := writeEvent(w, EventReady, cursorPayload{Cursor: cursor}); err != nil {
		return err
	}
	flusher.Flush()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()
	deadline := time.NewTimer(s.maxDuration)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-deadline.C:
			if err := writeEvent(w, EventEnd, cursorPayload{Cursor: cursor}); err != nil {
				return err
			}
			flusher.Flush()
			return nil

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return err
			}
			flusher.Flush()

		case <-ticker.C:
			events, next, err := src.Events(ctx, cursor)
			if err != nil {
				return err
			}
			for _, ev := range events {
				if err := writeEvent(w, ev.Name, ev.Data); err != nil {
					return err
				}
			}
			if len(events) > 0 {
				flusher.Flush()
			}
			cursor = next
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}
