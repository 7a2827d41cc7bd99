package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"ris_live/pkg/rislive"
)

// StreamClient subscribes to a RIS Live websocket and hands every text message to
// a handler, reconnecting with exponential backoff when the connection drops.
type StreamClient struct {
	url          string
	subscription rislive.Subscription
	pingInterval time.Duration
	dialer       *websocket.Dialer
	newBackOff   func() backoff.BackOff
}

// handlerError marks a failure of the message handler, which ends Run
type handlerError struct {
	err error
}

func (e *handlerError) Error() string { return e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }

// NewStreamClient builds a client for endpoint, identifying itself as client
func NewStreamClient(endpoint, client string, sub rislive.Subscription, pingInterval time.Duration) (*StreamClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("stream url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("stream url: unsupported scheme %q", u.Scheme)
	}
	if client != "" {
		q := u.Query()
		q.Set("client", client)
		u.RawQuery = q.Encode()
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	return &StreamClient{
		url:          u.String(),
		subscription: sub,
		pingInterval: pingInterval,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 0
			return b
		},
	}, nil
}

// URL returns the endpoint including the client query parameter
func (c *StreamClient) URL() string {
	return c.url
}

// Run streams until ctx is cancelled or handler returns an error. Connection
// failures are retried forever.
func (c *StreamClient) Run(ctx context.Context, handler func(msg string) error) error {
	b := c.newBackOff()
	for {
		connected, err := c.session(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		var he *handlerError
		if errors.As(err, &he) {
			return he.err
		}
		if connected {
			b.Reset()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		log.WithError(err).WithField("retry", wait).Warn("Stream disconnected")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// session runs one connection. connected reports whether the subscription was sent.
func (c *StreamClient) session(ctx context.Context, handler func(msg string) error) (connected bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.url, err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		_ = conn.Close()
		wg.Wait()
	}()

	// gorilla connections allow one concurrent writer
	var writeMu sync.Mutex
	write := func(data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	sub, err := json.Marshal(c.subscription)
	if err != nil {
		return false, err
	}
	if err := write(sub); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	log.WithFields(log.Fields{"url": c.url, "subscription": string(sub)}).Info("Subscribed to stream")

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-sessionCtx.Done()
		// Unblocks ReadMessage
		_ = conn.Close()
	}()

	if c.pingInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(c.pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-sessionCtx.Done():
					return
				case <-ticker.C:
					if err := write(rislive.Ping()); err != nil {
						log.WithError(err).Debug("Ping failed")
						return
					}
				}
			}
		}()
	}

	for {
		if c.pingInterval > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(3 * c.pingInterval))
		}
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		if mt != websocket.TextMessage || len(data) == 0 {
			continue
		}
		if err := handler(string(data)); err != nil {
			return true, &handlerError{err: err}
		}
	}
}
