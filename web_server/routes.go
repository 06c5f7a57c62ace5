package web_server

import (
	"context"
	"net/http"

	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/worlds"
	"github.com/lefinal/dodgeball-server/ws"
)

// PopulateRoutes populates the WebServer with the routes. The enabled store
// and the provisioner may be nil when persistence or world provisioning is
// not wired.
func (server *WebServer) PopulateRoutes(hub *ws.Hub, wsCtx context.Context, registry *game.Registry,
	enabledStore EnabledStore, provisioner worlds.Provisioner) {
	// Websocket stuff.
	server.router.HandleFunc("/ws", ws.HandleWS(hub, wsCtx))
	// API stuff.
	apiRouter := server.router.PathPrefix("/api/v1").Subrouter()
	api := apiHandlers{registry: registry, enabledStore: enabledStore, provisioner: provisioner}
	apiRouter.HandleFunc("/sessions", api.handleListSessions).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sessions/{sessionID}", api.handleGetSession).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sessions/{sessionID}", api.handleDeleteSession).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/sessions/{sessionID}/enabled", api.handleSetSessionEnabled).Methods(http.MethodPut)
}
