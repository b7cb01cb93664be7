// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/txpackd/txjson"
	"github.com/gorilla/websocket"
)

var (
	// ErrClientShutdown is returned for requests made after Shutdown and
	// for requests still pending when the client shuts down.
	ErrClientShutdown = errors.New("the client has been shutdown")

	// ErrClientDisconnect is returned for requests pending when the
	// connection drops.
	ErrClientDisconnect = errors.New("the client has been disconnected")

	// ErrRequestTimeout is returned when no reply arrived within the
	// configured RequestTimeout.
	ErrRequestTimeout = errors.New("request timed out")
)

const (
	// sendBufferSize is the number of elements the websocket send channel
	// can queue before blocking.
	sendBufferSize = 50

	// DefaultRequestTimeout bounds a request when the config leaves it
	// unset.
	DefaultRequestTimeout = 30 * time.Second

	defaultDialTimeout = 10 * time.Second
)

// ConnConfig describes the connection configuration parameters for the client.
type ConnConfig struct {
	// Host is the host and port of the JSON-RPC server.
	Host string

	// Endpoint is the websocket path.  It defaults to "ws".
	Endpoint string

	// DisableTLS selects ws:// instead of wss://.
	DisableTLS bool

	// RequestTimeout bounds the wait for each reply.  Zero selects
	// DefaultRequestTimeout; a negative value disables the bound.
	RequestTimeout time.Duration

	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration
}

func (config *ConnConfig) url() string {
	scheme := "wss"
	if config.DisableTLS {
		scheme = "ws"
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "ws"
	}
	u := url.URL{Scheme: scheme, Host: config.Host, Path: "/" + endpoint}
	return u.String()
}

// response is the raw bytes of a JSON-RPC result, or the error if the
// response error object was non-null.
type response struct {
	result []byte
	err    error
}

// jsonRequest holds information about a json request that is used to
// properly detect, interpret, and deliver a reply to it.
type jsonRequest struct {
	id             uint64
	method         string
	marshalledJSON []byte
	responseChan   chan *response
}

// Client represents a JSON-RPC websocket client.  Requests are multiplexed
// over a single connection and may be issued concurrently; replies are matched
// to requests by id.
type Client struct {
	id atomic.Uint64

	config *ConnConfig
	wsConn *websocket.Conn

	requestLock sync.Mutex
	requestMap  map[uint64]*jsonRequest

	sendChan     chan []byte
	shutdown     chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
	wg           sync.WaitGroup
}

// New dials the server described by config and starts the handlers.
func New(config *ConnConfig) (*Client, error) {
	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	wsConn, _, err := dialer.Dial(config.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", config.url(), err)
	}

	c := &Client{
		config:     config,
		wsConn:     wsConn,
		requestMap: make(map[uint64]*jsonRequest),
		sendChan:   make(chan []byte, sendBufferSize),
		shutdown:   make(chan struct{}),
	}
	c.wg.Add(2)
	go c.wsInHandler()
	go c.wsOutHandler()

	log.Infof("Established connection to RPC server %s", config.Host)
	return c, nil
}

// NextID returns the next id to be used when sending a JSON-RPC message.
func (c *Client) NextID() uint64 {
	return c.id.Add(1)
}

// addRequest associates the passed jsonRequest with its id.  It fails once
// the client is shut down, so no request can be left without a reply.
func (c *Client) addRequest(jReq *jsonRequest) error {
	c.requestLock.Lock()
	defer c.requestLock.Unlock()

	select {
	case <-c.shutdown:
		return c.shutdownErr
	default:
	}
	c.requestMap[jReq.id] = jReq
	return nil
}

// removeRequest returns and removes the jsonRequest which contains the
// response channel and original method associated with the passed id or nil
// if there is no association.
func (c *Client) removeRequest(id uint64) *jsonRequest {
	c.requestLock.Lock()
	defer c.requestLock.Unlock()

	jReq := c.requestMap[id]
	delete(c.requestMap, id)
	return jReq
}

// failPending delivers err to every outstanding request.
func (c *Client) failPending(err error) {
	c.requestLock.Lock()
	defer c.requestLock.Unlock()

	for id, jReq := range c.requestMap {
		jReq.responseChan <- &response{err: err}
		delete(c.requestMap, id)
	}
}

// handleMessage delivers a reply to the request waiting for it.
func (c *Client) handleMessage(msg []byte) {
	var resp txjson.Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		log.Warnf("Remote server sent invalid message: %v", err)
		return
	}
	var id uint64
	if err := json.Unmarshal(resp.ID, &id); err != nil {
		log.Warnf("Remote server sent reply with invalid id %s", resp.ID)
		return
	}

	jReq := c.removeRequest(id)
	if jReq == nil {
		// Late reply to a request that already timed out.
		log.Debugf("Received unexpected reply for id %d", id)
		return
	}

	var r response
	if resp.Error != nil {
		r.err = resp.Error
	} else {
		r.result = resp.Result
	}
	jReq.responseChan <- &r
}

// wsInHandler handles all incoming messages for the websocket connection.  It
// must be run as a goroutine.
func (c *Client) wsInHandler() {
	defer c.wg.Done()

	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			select {
			case <-c.shutdown:
			default:
				log.Errorf("Websocket receive error from %s: %v",
					c.config.Host, err)
				c.doShutdown(ErrClientDisconnect)
			}
			return
		}
		c.handleMessage(msg)
	}
}

// wsOutHandler handles all outgoing messages for the websocket connection.
// gorilla/websocket allows one concurrent writer, which this goroutine is.
func (c *Client) wsOutHandler() {
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.sendChan:
			err := c.wsConn.WriteMessage(websocket.TextMessage, msg)
			if err != nil {
				log.Errorf("Websocket send error to %s: %v",
					c.config.Host, err)
				c.doShutdown(ErrClientDisconnect)
				return
			}
		case <-c.shutdown:
			return
		}
	}
}

func (c *Client) requestTimeout() time.Duration {
	if c.config.RequestTimeout == 0 {
		return DefaultRequestTimeout
	}
	return c.config.RequestTimeout
}

// sendRequest registers jReq and queues it for sending.  When a request
// timeout is configured the request fails with ErrRequestTimeout unless a
// reply arrives first.
func (c *Client) sendRequest(jReq *jsonRequest) {
	if err := c.addRequest(jReq); err != nil {
		jReq.responseChan <- &response{err: err}
		return
	}

	if timeout := c.requestTimeout(); timeout > 0 {
		time.AfterFunc(timeout, func() {
			if r := c.removeRequest(jReq.id); r != nil {
				log.Warnf("Request %s (id %d) to %s timed out",
					r.method, r.id, c.config.Host)
				r.responseChan <- &response{err: ErrRequestTimeout}
			}
		})
	}

	select {
	case c.sendChan <- jReq.marshalledJSON:
	case <-c.shutdown:
		// doShutdown fails every pending request, this one included.
	}
}

// sendCmd sends the passed method and params and returns a response channel
// on which the reply will be delivered at some point in the future.
func (c *Client) sendCmd(method string, params interface{}) chan *response {
	id := c.NextID()
	req, err := txjson.NewRequest(id, method, params)
	if err != nil {
		return newFutureError(err)
	}
	marshalledJSON, err := json.Marshal(req)
	if err != nil {
		return newFutureError(err)
	}

	responseChan := make(chan *response, 1)
	jReq := &jsonRequest{
		id:             id,
		method:         method,
		marshalledJSON: marshalledJSON,
		responseChan:   responseChan,
	}
	log.Tracef("Sending command [%s] with id %d", method, id)
	c.sendRequest(jReq)
	return responseChan
}

// newFutureError returns a new future result channel that already has the
// passed error waiting on the channel with the reply set to nil.
func newFutureError(err error) chan *response {
	responseChan := make(chan *response, 1)
	responseChan <- &response{err: err}
	return responseChan
}

// receiveFuture receives from the passed futureResult channel to extract a
// reply or any errors.
func receiveFuture(f chan *response) ([]byte, error) {
	r := <-f
	return r.result, r.err
}

// doShutdown closes the connection once and fails every pending request with
// err.
func (c *Client) doShutdown(err error) {
	c.shutdownOnce.Do(func() {
		c.requestLock.Lock()
		c.shutdownErr = err
		close(c.shutdown)
		c.requestLock.Unlock()

		c.wsConn.Close()
		c.failPending(err)
	})
}

// Shutdown closes the connection.  Pending and later requests fail with
// ErrClientShutdown.
func (c *Client) Shutdown() {
	log.Tracef("Shutting down RPC client %s", c.config.Host)
	c.doShutdown(ErrClientShutdown)
}

// Disconnected reports whether the client is no longer usable.
func (c *Client) Disconnected() bool {
	select {
	case <-c.shutdown:
		return true
	default:
		return false
	}
}

// WaitForShutdown blocks until the client goroutines are stopped.
func (c *Client) WaitForShutdown() {
	c.wg.Wait()
}
