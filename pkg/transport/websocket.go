// Package transport provides alternative event stream transports beyond the
// HTTP client. The websocket stream carries the same protocol events over a
// persistent connection, as JSON text messages or binary envelopes.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
	"github.com/agentwire/go-sdk/pkg/encoding"
)

// WebSocketConfig holds the websocket stream configuration.
type WebSocketConfig struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// Headers are sent with the handshake request.
	Headers http.Header

	// HandshakeTimeout bounds the dial and upgrade.
	HandshakeTimeout time.Duration

	// PingInterval is how often pings are sent to keep the connection
	// alive. Zero disables pings.
	PingInterval time.Duration

	// ReadTimeout bounds the gap between messages, pongs included.
	ReadTimeout time.Duration

	// BufferSize is the capacity of the event channel.
	BufferSize int

	// Logger receives connection lifecycle logs.
	Logger logrus.FieldLogger
}

// DefaultWebSocketConfig returns a config with sensible defaults for the
// endpoint.
func DefaultWebSocketConfig(url string) *WebSocketConfig {
	return &WebSocketConfig{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      5 * time.Minute,
		BufferSize:       64,
	}
}

// Validate checks the configuration.
func (c *WebSocketConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", core.ErrInvalidConfig)
	}
	return nil
}

// WebSocketStream is a run's event stream over a websocket connection. Like
// the HTTP stream it is finite and non-restartable; cancelling its context
// completes it without an error.
type WebSocketStream struct {
	events chan events.Event
	cancel context.CancelFunc
	done   chan struct{}
	err    atomic.Pointer[streamError]
}

type streamError struct{ err error }

// Events returns the channel events are delivered on. The channel is closed
// when the stream ends.
func (s *WebSocketStream) Events() <-chan events.Event {
	return s.events
}

// Err reports how the stream ended. Read it after the events channel closes.
func (s *WebSocketStream) Err() error {
	select {
	case <-s.done:
	default:
		return nil
	}
	if wrapped := s.err.Load(); wrapped != nil {
		return wrapped.err
	}
	return nil
}

// Close cancels the stream and closes the connection.
func (s *WebSocketStream) Close() {
	s.cancel()
}

func (s *WebSocketStream) finish(err error) {
	if err != nil {
		s.err.Store(&streamError{err: err})
	}
	close(s.done)
	close(s.events)
}

// DialWebSocket connects to the endpoint, sends the run input as the first
// message and streams back the decoded events. Text messages are decoded as
// JSON events, binary messages as the binary envelope.
func DialWebSocket(ctx context.Context, config *WebSocketConfig, input *core.RunAgentInput) (*WebSocketStream, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is required", core.ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, config.URL, config.Headers)
	if err != nil {
		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}
		return nil, &core.TransportError{StatusCode: statusCode, Attempts: 1, Err: err}
	}

	body, err := json.Marshal(input)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to encode run input: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		conn.Close()
		return nil, &core.TransportError{Attempts: 1, Err: err}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream := &WebSocketStream{
		events: make(chan events.Event, config.BufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go runPumps(streamCtx, cancel, conn, config, logger, stream)
	return stream, nil
}

// runPumps coordinates the read and ping pumps and settles the stream when
// either stops.
func runPumps(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, config *WebSocketConfig, logger logrus.FieldLogger, stream *WebSocketStream) {
	defer cancel()
	defer conn.Close()

	if config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		})
	}

	pumpCtx, stopPumps := context.WithCancel(ctx)
	defer stopPumps()
	group, groupCtx := errgroup.WithContext(pumpCtx)

	// The read pump ending, cleanly or not, takes the other pumps with it.
	group.Go(func() error {
		defer stopPumps()
		return readPump(groupCtx, conn, config, stream)
	})

	if config.PingInterval > 0 {
		group.Go(func() error {
			return pingPump(groupCtx, conn, config.PingInterval)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		// Unblock the read pump.
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.SetReadDeadline(time.Now())
		return nil
	})

	err := group.Wait()
	switch {
	case ctx.Err() != nil:
		// cancelled by the caller: complete without error
		stream.finish(nil)
	case err != nil:
		logger.WithError(err).Debug("websocket stream ended with error")
		stream.finish(err)
	default:
		stream.finish(nil)
	}
}

func readPump(ctx context.Context, conn *websocket.Conn, config *WebSocketConfig, stream *WebSocketStream) error {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			if isTimeout(err) {
				return &core.TimeoutError{Stage: core.TimeoutIdle, Err: err}
			}
			return &core.TransportError{Err: err}
		}
		if config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		}

		var event events.Event
		switch messageType {
		case websocket.TextMessage:
			event, err = events.EventFromJSON(data)
			if err != nil {
				return &core.DecodingError{Format: "json", Frame: data, Err: err}
			}
		case websocket.BinaryMessage:
			event, err = encoding.DecodeBinary(data)
			if err != nil {
				return err
			}
		default:
			continue
		}

		select {
		case stream.events <- event:
		case <-ctx.Done():
			return nil
		}
	}
}

func pingPump(ctx context.Context, conn *websocket.Conn, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return &core.TransportError{Err: err}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	if t, ok := err.(timeout); ok {
		return t.Timeout()
	}
	return false
}
