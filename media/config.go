package media

import (
	"net/http"

	"go.uber.org/zap"

	"grimoire/common"
	"grimoire/config"
)

// NewBackend builds playback backend selected in configuration. Client and
// userAgent are used for resource probing.
func NewBackend(cfg *config.MediaConfig, client *http.Client, userAgent string, log *zap.Logger) Backend {
	switch cfg.Backend {
	case common.MediaBackendNone:
		log.Debug("Audio is disabled")
		return &NopBackend{}
	default:
		opts := []ClockOption{
			WithTick(cfg.Tick),
			WithFormats(cfg.Formats),
		}
		if cfg.Probe {
			opts = append(opts, WithProbe(client, userAgent))
		}
		return NewClockBackend(log, opts...)
	}
}
