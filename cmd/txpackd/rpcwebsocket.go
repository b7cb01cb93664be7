// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/btcsuite/txpackd/txjson"
	"github.com/gorilla/websocket"
)

const (
	// websocketSendBufferSize is the number of elements the send channel
	// can queue before blocking.
	websocketSendBufferSize = 50

	// maxInFlight is the number of requests of a single client that may
	// be handled concurrently.
	maxInFlight = 32

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

// wsResponse houses a message to send to a connected websocket client as
// well as a channel to reply on when the message is sent.
type wsResponse struct {
	msg      []byte
	doneChan chan bool
}

// wsClient provides an abstraction for handling a websocket client.  The
// overall data flow is split into two main goroutines.  The inHandler reads
// requests and runs each one in its own goroutine, and the outHandler is the
// only writer of the connection.
type wsClient struct {
	sync.Mutex

	server *rpcServer
	conn   *websocket.Conn
	addr   string

	// disconnected indicated whether or not the websocket client is
	// disconnected.
	disconnected bool

	inFlight chan struct{}
	handlers sync.WaitGroup

	sendChan chan wsResponse
	quit     chan struct{}
	wg       sync.WaitGroup
}

func newWebsocketClient(server *rpcServer, conn *websocket.Conn, remoteAddr string) *wsClient {
	return &wsClient{
		server:   server,
		conn:     conn,
		addr:     remoteAddr,
		inFlight: make(chan struct{}, maxInFlight),
		sendChan: make(chan wsResponse, websocketSendBufferSize),
		quit:     make(chan struct{}),
	}
}

// handleMessage parses a single request and hands it to a handler goroutine.
// Replies are sent in completion order and matched by id on the client.
func (c *wsClient) handleMessage(msg []byte) {
	var req txjson.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		reply, err := txjson.MarshalResponse(nil, nil, txjson.ErrRPCParse)
		if err != nil {
			rpcsLog.Errorf("Failed to marshal parse error: %v", err)
			return
		}
		c.SendMessage(reply, nil)
		return
	}
	if req.Method == "" || len(req.ID) == 0 {
		reply, err := txjson.MarshalResponse(req.ID, nil,
			txjson.ErrRPCInvalidRequest)
		if err != nil {
			rpcsLog.Errorf("Failed to marshal invalid request error: %v",
				err)
			return
		}
		c.SendMessage(reply, nil)
		return
	}
	rpcsLog.Debugf("Received command <%s> from %s", req.Method, c.addr)

	select {
	case c.inFlight <- struct{}{}:
	case <-c.quit:
		return
	}
	c.handlers.Add(1)
	go func() {
		defer func() {
			<-c.inFlight
			c.handlers.Done()
		}()

		reply, err := c.server.standardCmdResult(&req)
		if err != nil {
			rpcsLog.Errorf("Failed to marshal reply for <%s> command: %v",
				req.Method, err)
			return
		}
		c.SendMessage(reply, nil)
	}()
}

// inHandler handles all incoming messages for the websocket connection.  It
// must be run as a goroutine.
func (c *wsClient) inHandler() {
out:
	for {
		select {
		case <-c.quit:
			break out
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure,
				websocket.CloseGoingAway) && !c.isDisconnected() {

				rpcsLog.Errorf("Websocket receive error from %s: %v",
					c.addr, err)
			}
			break out
		}
		c.handleMessage(msg)
	}

	// Ensure the connection is closed.
	c.Disconnect()
	c.handlers.Wait()
	c.wg.Done()
	rpcsLog.Tracef("Websocket client input handler done for %s", c.addr)
}

// outHandler handles all outgoing messages for the websocket connection.  It
// must be run as a goroutine.
func (c *wsClient) outHandler() {
out:
	for {
		select {
		case r := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.TextMessage, r.msg)
			if err != nil {
				c.Disconnect()
				break out
			}
			if r.doneChan != nil {
				r.doneChan <- true
			}

		case <-c.quit:
			break out
		}
	}

	// Drain any wait channels before exiting so nothing is left waiting
	// around to send.
cleanup:
	for {
		select {
		case r := <-c.sendChan:
			if r.doneChan != nil {
				r.doneChan <- false
			}
		default:
			break cleanup
		}
	}
	c.wg.Done()
	rpcsLog.Tracef("Websocket client output handler done for %s", c.addr)
}

// SendMessage sends the passed json to the websocket client.  It is backed
// by a buffered channel, so it will not block until the send channel is full.
// The done channel, when set, receives whether the message was written.
func (c *wsClient) SendMessage(marshalledJSON []byte, doneChan chan bool) {
	select {
	case c.sendChan <- wsResponse{msg: marshalledJSON, doneChan: doneChan}:
	case <-c.quit:
		if doneChan != nil {
			doneChan <- false
		}
	}
}

func (c *wsClient) isDisconnected() bool {
	c.Lock()
	defer c.Unlock()
	return c.disconnected
}

// Disconnect disconnects the websocket client.
func (c *wsClient) Disconnect() {
	c.Lock()
	defer c.Unlock()

	// Nothing to do if already disconnected.
	if c.disconnected {
		return
	}

	rpcsLog.Tracef("Disconnecting websocket client %s", c.addr)
	close(c.quit)
	c.conn.Close()
	c.disconnected = true
}

// Start begins processing input and output messages.
func (c *wsClient) Start() {
	rpcsLog.Tracef("Starting websocket client %s", c.addr)

	c.wg.Add(2)
	go c.inHandler()
	go c.outHandler()
}

// WaitForShutdown blocks until the websocket client goroutines are stopped
// and the connection is closed.
func (c *wsClient) WaitForShutdown() {
	c.wg.Wait()
}
