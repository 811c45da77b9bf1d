package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/lucaferri/parla/internal/protocol"
)

// WSClient is the duplex channel to the server. One writer goroutine owns
// the connection for writes; the read loop decodes server frames and hands
// them to the event callback.
type WSClient struct {
	conn      *websocket.Conn
	outbound  chan any
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects with exponential backoff, sends the configure handshake,
// and starts the read and write pumps. onEvent is called from the read
// goroutine for every decoded server message.
func Dial(ctx context.Context, url string, cfg protocol.Configure, onEvent func(any)) (*WSClient, error) {
	var conn *websocket.Conn
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 3 * time.Second
	policy.MaxElapsedTime = 15 * time.Second

	err := backoff.Retry(func() error {
		var err error
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", url, err)
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, err
	}

	c := &WSClient{
		conn:     conn,
		outbound: make(chan any, 256),
		done:     make(chan struct{}),
	}

	cfg.Type = protocol.TypeConfigure
	if err := conn.WriteJSON(cfg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send configure: %w", err)
	}

	go c.writeLoop(ctx)
	go c.readLoop(onEvent)
	return c, nil
}

var errClientClosed = errors.New("client closed")

// Send enqueues one message for the writer goroutine.
func (c *WSClient) Send(msg any) error {
	select {
	case <-c.done:
		return errClientClosed
	case c.outbound <- msg:
		return nil
	}
}

// Done closes when the connection is gone.
func (c *WSClient) Done() <-chan struct{} { return c.done }

func (c *WSClient) Close() error {
	var retErr error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		retErr = c.conn.Close()
	})
	return retErr
}

func (c *WSClient) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-c.done:
			return
		case msg := <-c.outbound:
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write: %v", err)
				_ = c.Close()
				return
			}
		}
	}
}

func (c *WSClient) readLoop(onEvent func(any)) {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseServerMessage(data)
		if err != nil {
			log.Printf("ws decode: %v", err)
			continue
		}
		if onEvent != nil {
			onEvent(msg)
		}
	}
}
