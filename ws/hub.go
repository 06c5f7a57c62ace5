package ws

import (
	"context"

	"github.com/lefinal/dodgeball-server/client"
	"github.com/lefinal/dodgeball-server/logging"
	"go.uber.org/zap"
)

// Hub holds all active connections and manages centralized registering and
// unregistering.
type Hub struct {
	// clientListener is used for notifying of new clients or unregistered ones.
	clientListener client.Listener
	// connections holds all online connections.
	connections map[*connection]struct{}
	// register receives when a connection wants to register itself.
	register chan *connection
	// unregister receives when a connection wants to unregister itself.
	unregister chan *connection
}

// NewHub creates a new Hub. Start it with Hub.Run.
func NewHub(clientListener client.Listener) *Hub {
	return &Hub{
		clientListener: clientListener,
		connections:    make(map[*connection]struct{}),
		register:       make(chan *connection),
		unregister:     make(chan *connection),
	}
}

// Run starts the Hub. It blocks so you need to start a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.connections[c] = struct{}{}
			logging.WSLogger.Info("client connected", zap.String("client_id", c.ID))
			go h.clientListener.AcceptClient(ctx, c.Client)
		case c := <-h.unregister:
			if _, ok := h.connections[c]; ok {
				h.clientListener.SayGoodbyeToClient(ctx, c.Client)
				delete(h.connections, c)
				logging.WSLogger.Info("client disconnected", zap.String("client_id", c.ID))
				// Close the send-channel which leads to stopping the write-pump.
				close(c.Send)
			}
		}
	}
}
