// Package client talks to a running sqlanalyzer service over a websocket.
//
// Usage:
//
//	c, err := client.Dial(ctx, "127.0.0.1:50005", client.Options{})
//	if err != nil {
//		// errors.Is(err, client.ErrConnection)
//	}
//	defer c.Close()
//
//	id, err := c.RegisterCatalog(ctx, cat)
//	res, err := c.Analyze(ctx, sql, id, options)
//
// Calls on one Client are serialized: a connection carries one request at a
// time.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
)

type Options struct {
	// deadline for each request when ctx has none, 0 for no limit
	RequestTimeout time.Duration
	// defaults to websocket.DefaultDialer
	Dialer *ws.Dialer
}

type Client struct {
	mu sync.Mutex
	// The websocket connection used by the client
	conn *ws.Conn
	// The formatted connection url of the sqlanalyzer service
	Url     *url.URL
	options Options
	req_id  int
}

// NewClient accepts host:port or a full ws:// url. It does not connect.
func NewClient(addr string, options Options) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	Url, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if Url.Scheme != "ws" && Url.Scheme != "wss" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrConnection, Url.Scheme)
	}
	if Url.Path == "" {
		Url.Path = "/"
	}
	if options.Dialer == nil {
		options.Dialer = ws.DefaultDialer
	}
	return &Client{Url: Url, options: options}, nil
}

// Dial connects and checks the service answers. There is no retry.
func Dial(ctx context.Context, addr string, options Options) (*Client, error) {
	c, err := NewClient(addr, options)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if err := c.TestConnection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	conn, _, err := c.options.Dialer.DialContext(ctx, c.Url.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	pkg.InfoLog("connected to sqlanalyzer at", c.Url.Host)
	c.conn = conn
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil

	err := conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, "Disconnect"), time.Now().Add(time.Second))
	if err != nil {
		pkg.DebugLog("sending close frame", err)
	}
	if err := conn.Close(); err != nil {
		pkg.ErrorLog(err)
		return err
	}
	pkg.InfoLog("disconnected from sqlanalyzer")
	return nil
}

// drop discards a connection that failed mid-request; the next call dials again.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// query sends one request and decodes the response payload into out.
// Transport failures wrap ErrConnection; service failures are *Error.
func (c *Client) query(ctx context.Context, action protocol.Action, payload any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnection, action, err)
	}
	if err := c.connect(ctx); err != nil {
		return err
	}

	body := map[string]any{}
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(buf, &body); err != nil {
			return err
		}
	}
	c.req_id++
	body["action"] = action
	body["__sqlanalyzer_req_id__"] = c.req_id

	conn := c.conn
	deadline, ok := ctx.Deadline()
	if !ok && c.options.RequestTimeout > 0 {
		deadline, ok = time.Now().Add(c.options.RequestTimeout), true
	}
	if ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
		conn.SetWriteDeadline(time.Now())
	})
	defer func() {
		if c.conn != conn {
			stop()
			return
		}
		if !stop() {
			// cancelled: the deadline may already sit in the past
			c.drop()
			return
		}
		conn.SetWriteDeadline(time.Time{})
		conn.SetReadDeadline(time.Time{})
	}()

	if err := c.conn.WriteJSON(body); err != nil {
		c.drop()
		return fmt.Errorf("%w: %s: %w", ErrConnection, action, err)
	}

	var res protocol.RawResponse
	if err := c.conn.ReadJSON(&res); err != nil {
		c.drop()
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %w", ErrConnection, action, ctx.Err())
		}
		return fmt.Errorf("%w: %s: %w", ErrConnection, action, err)
	}
	if res.ReqID != c.req_id {
		c.drop()
		return fmt.Errorf("%w: %s: response for request %d, expected %d", ErrConnection, action, res.ReqID, c.req_id)
	}

	if err := responseError(res); err != nil {
		return err
	}
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	return json.Unmarshal(res.Data, out)
}
