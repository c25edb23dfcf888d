package eventsource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const maxLineSize = 1 << 20

// JSONL reads one JSON event per line, for replays and local runs.
// Replies are written as JSON lines to w.
type JSONL struct {
	r   io.Reader
	log *slog.Logger

	mu sync.Mutex
	w  io.Writer
}

func NewJSONL(log *slog.Logger, r io.Reader, w io.Writer) *JSONL {
	return &JSONL{r: r, w: w, log: log.With("source", "jsonl")}
}

// Run returns nil at end of input. Malformed lines are logged and skipped.
func (s *JSONL) Run(ctx context.Context, out chan<- Event) error {
	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.log.Warn("skipping malformed event", slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}

// Send writes r as one JSON line.
func (s *JSONL) Send(_ context.Context, r Reply) error {
	if s.w == nil {
		return nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}
