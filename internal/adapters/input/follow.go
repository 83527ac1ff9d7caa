package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/mongoship/internal/ports"
)

// Follower tails a file the way `tail -F` does: it reads what is there,
// then waits for appended lines and reopens the file when it is rotated
// or truncated.
type Follower struct {
	path   string
	reader *Reader
	logger ports.Logger

	file    *os.File
	br      *bufio.Reader
	offset  int64
	partial []byte
}

// NewFollower creates a follower for path.
func NewFollower(path string, logger ports.Logger) *Follower {
	return &Follower{
		path:   filepath.Clean(path),
		reader: NewReader(logger),
		logger: logger,
	}
}

// Stats returns the counters accumulated so far.
func (f *Follower) Stats() Stats {
	return f.reader.Stats()
}

// Run follows the file until ctx is done or h returns a fatal error.
func (f *Follower) Run(ctx context.Context, h Handler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so rotation (remove + create) is observed.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	if err := f.open(); err != nil {
		return err
	}
	defer f.close()

	if err := f.drain(ctx, h); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			switch {
			case ev.Op&fsnotify.Create != 0:
				// Finish the old file first; remaining bytes were written before rotation.
				if err := f.drain(ctx, h); err != nil {
					return err
				}
				if err := f.flushPartial(ctx, h); err != nil {
					return err
				}
				f.close()
				if err := f.open(); err != nil {
					return err
				}
				f.logger.Info("input file rotated", ports.String("path", f.path))
				if err := f.drain(ctx, h); err != nil {
					return err
				}
			case ev.Op&fsnotify.Write != 0:
				if err := f.checkTruncated(); err != nil {
					return err
				}
				if err := f.drain(ctx, h); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("file watcher error", ports.Err(err))
		}
	}
}

func (f *Follower) open() error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	f.file = file
	f.br = bufio.NewReader(file)
	f.offset = 0
	f.partial = f.partial[:0]
	return nil
}

func (f *Follower) close() {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}
}

// drain handles every complete line available. A trailing line without a
// newline is kept until the rest of it is written.
func (f *Follower) drain(ctx context.Context, h Handler) error {
	for {
		chunk, err := f.br.ReadBytes('\n')
		f.offset += int64(len(chunk))
		f.partial = append(f.partial, chunk...)

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line := f.partial
		f.partial = nil
		if herr := f.reader.handleLine(ctx, line, h); herr != nil {
			return herr
		}
	}
}

// flushPartial handles a last line that was never terminated by a newline.
func (f *Follower) flushPartial(ctx context.Context, h Handler) error {
	line := f.partial
	f.partial = nil
	return f.reader.handleLine(ctx, line, h)
}

// checkTruncated rewinds when the file shrank below what was already read.
func (f *Follower) checkTruncated() error {
	fi, err := f.file.Stat()
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if fi.Size() >= f.offset {
		return nil
	}
	f.logger.Info("input file truncated", ports.String("path", f.path))
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind input: %w", err)
	}
	f.br.Reset(f.file)
	f.offset = 0
	f.partial = f.partial[:0]
	return nil
}
