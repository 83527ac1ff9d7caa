// Package input feeds events decoded from JSON lines into a handler.
package input

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/event"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Handler consumes one decoded event.
type Handler func(ctx context.Context, ev *event.Event) error

// Stats counts what a reader has seen.
type Stats struct {
	Lines     int
	Events    int
	Malformed int
	Dropped   int
}

// Reader decodes newline-delimited JSON objects.
type Reader struct {
	logger ports.Logger
	stats  Stats
}

// NewReader creates a reader logging malformed lines to logger.
func NewReader(logger ports.Logger) *Reader {
	return &Reader{logger: logger}
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Run reads src until EOF or until ctx is done, passing every event to h.
// Malformed lines and events the handler rejects or drops are logged and
// skipped; any other handler error stops the run.
func (r *Reader) Run(ctx context.Context, src io.Reader, h Handler) error {
	br := bufio.NewReader(src)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if herr := r.handleLine(ctx, line, h); herr != nil {
				return herr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

func (r *Reader) handleLine(ctx context.Context, line []byte, h Handler) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	r.stats.Lines++

	ev, err := event.Parse(line)
	if err != nil {
		r.stats.Malformed++
		r.logger.Warn("skipping malformed line",
			ports.Int("line", r.stats.Lines),
			ports.Err(err),
		)
		return nil
	}

	err = h(ctx, ev)
	switch {
	case err == nil:
		r.stats.Events++
		return nil
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrRetriesExhausted):
		// Already logged by the sink; the event is lost but the stream goes on.
		r.stats.Dropped++
		return nil
	default:
		return err
	}
}
