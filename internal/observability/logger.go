package observability

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Incarnation identifies this process run; robots reuse ids across restarts.
var Incarnation = uuid.NewString()

// InitLogger tags the global logger with the app name and incarnation.
// Call it after logging.Configure so the writer and level are already set.
func InitLogger(app string) zerolog.Logger {
	logger := log.Logger.With().
		Str("app", app).
		Str("incarnation", Incarnation).
		Logger()
	log.Logger = logger
	return logger
}
