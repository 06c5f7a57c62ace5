package app

import (
	"encoding/json"
	"os"

	"github.com/gobuffalo/nulls"
	"github.com/lefinal/dodgeball-server/errors"
	"github.com/lefinal/dodgeball-server/game"
	"github.com/lefinal/dodgeball-server/web_server"
	"go.uber.org/zap/zapcore"
)

// LogConfig is the configuration for logging.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for log entries written to stdout.
	StdoutLogLevel zapcore.Level `json:"stdout_log_level"`
	// HighPriorityOutput is an optional file that warnings and errors are
	// written to with rotation.
	HighPriorityOutput nulls.String `json:"high_priority_output"`
	// DebugOutput is an optional file that all log entries are written to with
	// rotation.
	DebugOutput nulls.String `json:"debug_output"`
	// MaxSize is the maximum size in megabytes of a log file before it gets
	// rotated.
	MaxSize int `json:"max_size"`
	// KeepDays is the number of days to keep rotated log files.
	KeepDays int `json:"keep_days"`
}

// Config is the configuration needed in order to boot an App.
type Config struct {
	// DBConn is the connection string for the PostgreSQL database.
	DBConn string `json:"db_conn"`
	// ServeAddr is the address the web server listens on for websocket and API
	// requests.
	ServeAddr string `json:"serve_addr"`
	// MQTTAddr is the optional address of an MQTT server for publishing session
	// lifecycle events.
	MQTTAddr nulls.String `json:"mqtt_addr"`
	// WorldTemplateDir is the directory that is copied for each provisioned
	// arena world.
	WorldTemplateDir string `json:"world_template_dir"`
	// WorldsDir is the directory provisioned arena worlds are placed in.
	WorldsDir string `json:"worlds_dir"`
	// Game holds the session rules applied to every session.
	Game game.Config `json:"game"`
	// Log is the logging configuration.
	Log LogConfig `json:"log"`
}

// LoadConfig reads and parses the Config from the file at the given path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrFatal,
			Err:     err,
			Message: "read config file",
			Details: errors.Details{"path": path},
		}
	}
	config := Config{
		ServeAddr: web_server.DefaultServeAddr,
	}
	err = json.Unmarshal(raw, &config)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "parse config file",
			Details: errors.Details{"path": path},
		}
	}
	return config, nil
}

// ValidateConfig checks that the given Config holds everything needed for
// booting.
func ValidateConfig(config Config) error {
	if config.DBConn == "" {
		return errors.NewInternalError("missing db connection string", nil)
	}
	if config.ServeAddr == "" {
		return errors.NewInternalError("missing serve address", nil)
	}
	if config.WorldTemplateDir == "" {
		return errors.NewInternalError("missing world template dir", nil)
	}
	if config.WorldsDir == "" {
		return errors.NewInternalError("missing worlds dir", nil)
	}
	return nil
}
