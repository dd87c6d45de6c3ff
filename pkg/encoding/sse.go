package encoding

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
)

// SSEWriter frames events for a server-sent-events response. It writes one
// "data:" line per event followed by the blank frame terminator.
type SSEWriter struct {
	w io.Writer
}

// NewSSEWriter creates a writer framing events onto w.
func NewSSEWriter(w io.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

// WriteEvent encodes the event as JSON and writes one complete frame. The
// writer is flushed if it supports flushing, so events reach a streaming
// client immediately.
func (s *SSEWriter) WriteEvent(event events.Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if flusher, ok := s.w.(interface{ Flush() }); ok {
		flusher.Flush()
	}
	return nil
}

// WriteKeepAlive writes a comment frame that decoders skip without producing
// an event. Proxies see traffic and keep the connection open.
func (s *SSEWriter) WriteKeepAlive() error {
	_, err := io.WriteString(s.w, "data: :\n\n")
	if err != nil {
		return fmt.Errorf("failed to write keep-alive: %w", err)
	}
	if flusher, ok := s.w.(interface{ Flush() }); ok {
		flusher.Flush()
	}
	return nil
}

// SSEReader decodes an SSE byte stream into events.
//
// Frames are one or more "data:" lines terminated by a blank line.
// Multi-line data fields are joined with a newline. "id:", "event:" and
// "retry:" lines are recognized and ignored, as are comment lines. A
// "data: :" frame is a keep-alive and produces no event.
type SSEReader struct {
	scanner *bufio.Scanner
	lenient bool
}

// SSEReaderOption configures an SSEReader.
type SSEReaderOption func(*SSEReader)

// WithLenientDecoding makes the reader skip frames that fail to decode
// instead of returning a DecodingError. Sequencing guarantees are the
// caller's problem in this mode.
func WithLenientDecoding() SSEReaderOption {
	return func(r *SSEReader) {
		r.lenient = true
	}
}

// NewSSEReader creates a reader decoding events from r.
func NewSSEReader(r io.Reader, options ...SSEReaderOption) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	reader := &SSEReader{scanner: scanner}
	for _, opt := range options {
		opt(reader)
	}
	return reader
}

// Next returns the next decoded event. It returns io.EOF when the stream
// ends, and a *core.DecodingError when a frame cannot be decoded unless the
// reader is lenient.
func (r *SSEReader) Next() (events.Event, error) {
	for {
		frame, err := r.nextFrame()
		if err != nil {
			return nil, err
		}
		if frame == "" {
			// keep-alive or a frame without data
			continue
		}

		event, err := events.EventFromJSON([]byte(frame))
		if err != nil {
			if r.lenient {
				continue
			}
			return nil, &core.DecodingError{Format: "sse", Frame: []byte(frame), Err: err}
		}
		return event, nil
	}
}

// nextFrame reads up to the next blank line and returns the joined data
// payload, or "" for frames carrying no event.
func (r *SSEReader) nextFrame() (string, error) {
	var dataLines []string
	sawLine := false

	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")

		if line == "" {
			if !sawLine {
				// leading blank lines between frames
				continue
			}
			return r.joinData(dataLines), nil
		}
		sawLine = true

		switch {
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"),
			strings.HasPrefix(line, "event:"),
			strings.HasPrefix(line, "retry:"),
			strings.HasPrefix(line, ":"):
			// recognized fields and comments are ignored
		default:
			// unknown field lines are ignored like the SSE spec requires
		}
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	if len(dataLines) > 0 {
		// stream ended without a trailing blank line
		return r.joinData(dataLines), nil
	}
	return "", io.EOF
}

func (r *SSEReader) joinData(dataLines []string) string {
	if len(dataLines) == 1 && dataLines[0] == ":" {
		// keep-alive comment payload
		return ""
	}
	return strings.Join(dataLines, "\n")
}
