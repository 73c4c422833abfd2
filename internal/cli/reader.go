package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

type readResult struct {
	err   error
	value string
}

// NonBlockingReader reads lines without ignoring context cancellation. A read
// abandoned by cancellation is handed to the next caller instead of being lost.
type NonBlockingReader struct {
	reader  *bufio.Reader
	pending chan readResult
	mu      sync.Mutex
}

// NewNonBlockingReader creates a new non-blocking reader.
func NewNonBlockingReader(reader io.Reader) *NonBlockingReader {
	if reader == nil {
		panic("reader cannot be nil")
	}
	return &NonBlockingReader{reader: bufio.NewReader(reader)}
}

// ReadString reads until delim, returning ErrInputCancelled if ctx ends first.
func (r *NonBlockingReader) ReadString(ctx context.Context, delim byte) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}

	r.mu.Lock()
	ch := r.pending
	if ch == nil {
		ch = make(chan readResult, 1)
		r.pending = ch
		go func() {
			value, err := r.reader.ReadString(delim)
			ch <- readResult{value: value, err: err}
		}()
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-ch:
		r.mu.Lock()
		r.pending = nil
		r.mu.Unlock()
		return res.value, res.err
	}
}

// ReadLine reads a trimmed line. A final line without a newline is returned
// before io.EOF is reported.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	line, err := r.ReadString(ctx, '\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
