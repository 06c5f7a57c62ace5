package logging

import "go.uber.org/zap"

// Loggers.
var (
	// AppLogger is the main app.App logger.
	AppLogger *zap.Logger
	// DBLogger is used for stuff regarding the database connection.
	DBLogger *zap.Logger
	// GameLogger is the logger for package game.
	GameLogger *zap.Logger
	// SchedulerLogger is used by the tick scheduler and its runnables.
	SchedulerLogger *zap.Logger
	// WorldLogger is used for arena world provisioning and deletion.
	WorldLogger *zap.Logger
	// NotifyLogger is used for player notification delivery.
	NotifyLogger *zap.Logger
	// WebServerLogger is used for all stuff regarding web servers.
	WebServerLogger *zap.Logger
	// WSLogger is used for all stuff regarding websocket connections.
	WSLogger *zap.Logger
	// GatewayLogger is used for incoming client messages and their handling.
	GatewayLogger *zap.Logger
	// PortalLogger is the logger for the MQTT portal.
	PortalLogger *zap.Logger
	// SetupLogger is used for the game setup flow.
	SetupLogger *zap.Logger
)

func init() {
	// Assure usable topic loggers even before ApplyToGlobalLoggers was called.
	// Mainly relevant for tests.
	ApplyToGlobalLoggers(zap.NewNop())
}

// ApplyToGlobalLoggers populates all topic loggers from the given root logger.
func ApplyToGlobalLoggers(logger *zap.Logger) {
	AppLogger = logger.Named("app")
	DBLogger = logger.Named("db")
	GameLogger = logger.Named("game")
	SchedulerLogger = logger.Named("scheduler")
	WorldLogger = logger.Named("world")
	NotifyLogger = logger.Named("notify")
	WebServerLogger = logger.Named("web-server")
	WSLogger = logger.Named("ws")
	GatewayLogger = logger.Named("gateway")
	PortalLogger = logger.Named("portal")
	SetupLogger = logger.Named("setup")
}
