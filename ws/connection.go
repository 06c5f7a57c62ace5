package ws

import (
	"bytes"
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lefinal/dodgeball-server/client"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/logging"
	"go.uber.org/zap"
)

const (
	// writeTimeout is the timeout for writing a message to the peer.
	writeTimeout = 10 * time.Second
	// pongTimeout is the timeout for waiting for the next pong message from the
	// peer. Must be greater than pingInterval.
	pongTimeout = 60 * time.Second
	// pingInterval is the interval in which pings are sent to the peer. Must be
	// less than pongTimeout.
	pingInterval = (pongTimeout * 9) / 10
	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 16384
)

var (
	// newline is used for separating messages in writer.
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// connection holds the websocket connection and is being used by Hub.
type connection struct {
	*client.Client
	// hub is the actual websocket hub which is used for registering and
	// unregistering.
	hub *Hub
	// conn is the actual websocket connection.
	conn *websocket.Conn
}

func (c *connection) logger() *zap.Logger {
	return logging.WSLogger.With(zap.String("client_id", c.ID))
}

// readPump forwards messages from the websocket connection to the hub.
func (c *connection) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		err := c.conn.Close()
		if err != nil {
			c.logger().Debug("close connection", zap.Error(err))
		}
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	// Handle received pong.
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		// Read next message.
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().Debug("unexpected close", zap.Error(err))
			}
			break
		}
		// Trim.
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		// Forward.
		select {
		case <-ctx.Done():
			c.logger().Warn("dropping message due to ctx done", zap.ByteString("message", message))
		case c.Receive <- message:
		}
	}
}

// writePump forwards outgoing messages from the hub to the websocket
// connection. We do not pass a context.Context here because the hub will close
// the Send-channel which will lead to termination, anyways.
func (c *connection) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer func() {
		// Stop ping ticker in order to avoid ticker leak.
		pingTicker.Stop()
		// Close connection.
		err := c.conn.Close()
		if err != nil {
			c.logger().Debug("close connection", zap.Error(err))
		}
	}()
	for {
		select {
		case message, ok := <-c.Send:
			// Set write timeout.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			// Check if connection close is requested from hub.
			if !ok {
				err := c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				if err != nil {
					c.logger().Debug("write close message", zap.Error(err))
				}
				return
			}
			// Write message.
			nextWriter, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				// We expect the read pump to fail as well.
				c.logger().Warn("create writer for text message", zap.Error(err))
				return
			}
			_, err = nextWriter.Write(message)
			if err != nil {
				errors.Log(c.logger(), errors.Wrap(err, "write text message", nil))
			}
			// Close writer.
			if err := nextWriter.Close(); err != nil {
				c.logger().Warn("close next writer", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			// Send ping.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger().Warn("write ping", zap.Error(err))
				return
			}
		}
	}
}
