package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
	"github.com/agentwire/go-sdk/pkg/encoding"
)

// Config holds the client configuration.
type Config struct {
	// Endpoint is the URL the run request is posted to.
	Endpoint string

	// Headers are added to every request.
	Headers map[string]string

	// HTTPClient is the underlying HTTP client. Defaults to a client
	// without its own timeout; the two timeouts below govern the stream.
	HTTPClient *http.Client

	// MaxRetries is the number of retries after the first attempt. Retries
	// only happen while no response byte has been received.
	MaxRetries int

	// InitialBackoff, BackoffMultiplier and MaxBackoff shape the delay
	// between attempts.
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration

	// Jitter randomizes the backoff delays. Off by default so delays are
	// predictable.
	Jitter bool

	// ConnectTimeout bounds dialing plus waiting for the first response
	// byte of one attempt.
	ConnectTimeout time.Duration

	// IdleTimeout bounds the gap between consecutive stream chunks. Zero
	// disables it.
	IdleTimeout time.Duration

	// Verify runs a SequenceVerifier over the stream; a protocol violation
	// terminates the stream with the violation as its error.
	Verify bool

	// Transforms build the per-run pipeline applied between decoding and
	// verification, in order.
	Transforms []TransformFactory

	// BufferSize is the capacity of the event channel.
	BufferSize int

	// Logger receives attempt and stream lifecycle logs.
	Logger logrus.FieldLogger
}

// DefaultConfig returns a config with sensible defaults for the endpoint.
func DefaultConfig(endpoint string) *Config {
	return &Config{
		Endpoint:          endpoint,
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
		ConnectTimeout:    10 * time.Second,
		IdleTimeout:       5 * time.Minute,
		BufferSize:        64,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", core.ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: maxRetries must not be negative", core.ErrInvalidConfig)
	}
	if c.BackoffMultiplier != 0 && c.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoffMultiplier must be at least 1", core.ErrInvalidConfig)
	}
	return nil
}

// Client issues run requests and exposes each response as a finite,
// non-restartable event stream.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewClient creates a client from the config.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is required", core.ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     *config,
		httpClient: config.HTTPClient,
		logger:     config.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	return c, nil
}

// EventStream is the decoded response of one run. Events arrive on Events()
// in arrival order; when the channel closes, Err() reports how the stream
// ended. A nil Err() means the stream completed normally, including through
// cancellation.
type EventStream struct {
	events chan events.Event
	cancel context.CancelFunc
	done   chan struct{}
	err    atomic.Pointer[streamError]
}

type streamError struct{ err error }

// Events returns the channel events are delivered on. The channel is closed
// when the stream ends.
func (s *EventStream) Events() <-chan events.Event {
	return s.events
}

// Err reports how the stream ended. It returns nil while the stream is
// still live; read it after the events channel closes.
func (s *EventStream) Err() error {
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

// Close cancels the stream. Pending events may still be delivered; the
// channel closes shortly after.
func (s *EventStream) Close() {
	s.cancel()
}

// finish records the terminal error and closes the stream. done closes
// before the events channel so Err is settled by the time a reader sees the
// channel close.
func (s *EventStream) finish(err error) {
	if err != nil {
		s.err.Store(&streamError{err: err})
	}
	close(s.done)
	close(s.events)
}

// Run posts the input and streams back the decoded events. Establishing the
// stream is retried per the config; once the first response byte has arrived
// the stream is never restarted, because the run may already have side
// effects and a replay could duplicate messages.
func (c *Client) Run(ctx context.Context, input *core.RunAgentInput) (*EventStream, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run input: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	resp, reader, err := c.establish(streamCtx, body, input.RunID)
	if err != nil {
		cancel()
		return nil, err
	}

	stream := &EventStream{
		events: make(chan events.Event, c.config.BufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.consume(streamCtx, cancel, resp, reader, stream, input.RunID)
	return stream, nil
}

// attemptResult carries one connection attempt's outcome.
type attemptResult struct {
	resp   *http.Response
	reader *bufio.Reader
}

// establish performs the request with bounded retries. Each failed attempt
// is retried only if no response byte was observed: connection errors, 5xx
// statuses and connect timeouts qualify; 4xx never does.
func (c *Client) establish(ctx context.Context, body []byte, runID string) (*http.Response, *bufio.Reader, error) {
	bo := backoff.NewExponentialBackOff()
	if c.config.InitialBackoff > 0 {
		bo.InitialInterval = c.config.InitialBackoff
	}
	if c.config.BackoffMultiplier >= 1 {
		bo.Multiplier = c.config.BackoffMultiplier
	}
	if c.config.MaxBackoff > 0 {
		bo.MaxInterval = c.config.MaxBackoff
	}
	if c.config.Jitter {
		bo.RandomizationFactor = 0.5
	} else {
		bo.RandomizationFactor = 0
	}
	bo.Reset()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := bo.NextBackOff()
			c.logger.WithFields(logrus.Fields{
				"runId":   runID,
				"attempt": attempt + 1,
				"delay":   delay,
			}).Debug("retrying run request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		attempts++
		result, err, retryable := c.attempt(ctx, body)
		if err == nil {
			return result.resp, result.reader, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
	}

	if timeoutErr, ok := lastErr.(*core.TimeoutError); ok {
		return nil, nil, timeoutErr
	}
	if transportErr, ok := lastErr.(*core.TransportError); ok {
		transportErr.Attempts = attempts
		return nil, nil, transportErr
	}
	return nil, nil, &core.TransportError{Attempts: attempts, Err: lastErr}
}

// attempt makes one request and waits for the first response byte.
func (c *Client) attempt(ctx context.Context, body []byte) (attemptResult, error, bool) {
	attemptCtx, cancelAttempt := context.WithCancel(ctx)

	var connectTimedOut atomic.Bool
	var connectTimer *time.Timer
	if c.config.ConnectTimeout > 0 {
		connectTimer = time.AfterFunc(c.config.ConnectTimeout, func() {
			connectTimedOut.Store(true)
			cancelAttempt()
		})
	}
	stopConnectTimer := func() {
		if connectTimer != nil {
			connectTimer.Stop()
		}
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		stopConnectTimer()
		cancelAttempt()
		return attemptResult{}, &core.TransportError{Err: err}, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		stopConnectTimer()
		cancelAttempt()
		if connectTimedOut.Load() {
			return attemptResult{}, &core.TimeoutError{Stage: core.TimeoutConnect, Err: err}, true
		}
		return attemptResult{}, &core.TransportError{Err: err}, true
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		stopConnectTimer()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancelAttempt()
		transportErr := &core.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
		return attemptResult{}, transportErr, resp.StatusCode >= 500
	}

	// The first body byte is the retry cut-over: before it, a fresh request
	// is safe; after it, the run may have visible effects.
	reader := bufio.NewReader(resp.Body)
	if _, err := reader.Peek(1); err != nil {
		stopConnectTimer()
		resp.Body.Close()
		cancelAttempt()
		if connectTimedOut.Load() {
			return attemptResult{}, &core.TimeoutError{Stage: core.TimeoutConnect, Err: err}, true
		}
		return attemptResult{}, &core.TransportError{Err: fmt.Errorf("stream ended before first byte: %w", err)}, true
	}
	stopConnectTimer()

	// The attempt context must stay alive for the body; tie its lifetime to
	// the stream context instead of cancelling here.
	go func() {
		<-ctx.Done()
		cancelAttempt()
	}()

	return attemptResult{resp: resp, reader: reader}, nil, false
}

// consume reads frames until the stream ends, pushing decoded events through
// the pipeline, optional verification and out to the caller.
func (c *Client) consume(ctx context.Context, cancel context.CancelFunc, resp *http.Response, reader *bufio.Reader, stream *EventStream, runID string) {
	defer resp.Body.Close()
	defer cancel()

	var idleTimedOut atomic.Bool
	source := io.Reader(reader)
	if c.config.IdleTimeout > 0 {
		source = &idleTimeoutReader{
			r:        reader,
			timeout:  c.config.IdleTimeout,
			cancel:   cancel,
			timedOut: &idleTimedOut,
		}
	}
	sseReader := encoding.NewSSEReader(source)

	runPipeline := newPipeline(c.config.Transforms)
	var verifier *events.SequenceVerifier
	if c.config.Verify {
		verifier = events.NewSequenceVerifier()
	}

	emit := func(batch []events.Event) error {
		for _, event := range batch {
			if verifier != nil {
				if err := verifier.Verify(event); err != nil {
					return err
				}
			}
			select {
			case stream.events <- event:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	}

	for {
		if ctx.Err() != nil {
			// cancelled between chunks: complete without error
			stream.finish(nil)
			return
		}

		event, err := sseReader.Next()
		if err != nil {
			switch {
			case err == io.EOF:
				if flushErr := emit(runPipeline.flush()); flushErr != nil {
					stream.finish(flushErr)
					return
				}
				stream.finish(nil)
			case idleTimedOut.Load():
				stream.finish(&core.TimeoutError{Stage: core.TimeoutIdle, Err: err})
			case ctx.Err() != nil:
				stream.finish(nil)
			default:
				if _, ok := err.(*core.DecodingError); ok {
					stream.finish(err)
				} else {
					stream.finish(&core.TransportError{Err: err})
				}
			}
			return
		}

		if err := emit(runPipeline.process(event)); err != nil {
			c.logger.WithFields(logrus.Fields{
				"runId": runID,
				"event": event.Type(),
			}).Error("protocol violation, terminating stream")
			stream.finish(err)
			return
		}
	}
}

// idleTimeoutReader cancels the stream when one Read blocks longer than the
// timeout.
type idleTimeoutReader struct {
	r        io.Reader
	timeout  time.Duration
	cancel   context.CancelFunc
	timedOut *atomic.Bool
}

func (ir *idleTimeoutReader) Read(p []byte) (int, error) {
	timer := time.AfterFunc(ir.timeout, func() {
		ir.timedOut.Store(true)
		ir.cancel()
	})
	defer timer.Stop()
	return ir.r.Read(p)
}
