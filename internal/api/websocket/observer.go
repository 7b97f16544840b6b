package websocket

import (
	"log/slog"

	"github.com/ramonehamilton/deck-winrate/internal/metrics"
	"github.com/ramonehamilton/deck-winrate/internal/profile"
)

// ProfileData is the payload of profile:result events.
type ProfileData struct {
	Path   string      `json:"path"`
	Deck   string      `json:"deck,omitempty"`
	Result interface{} `json:"result"`
}

// ProfileErrorData is the payload of profile:invalid events.
type ProfileErrorData struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ProfileObserver forwards watched profile recalculations to every
// connected WebSocket client.
type ProfileObserver struct {
	hub     *Hub
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewProfileObserver creates an observer broadcasting through hub.
// recorder may be nil.
func NewProfileObserver(hub *Hub, recorder *metrics.Recorder, logger *slog.Logger) *ProfileObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileObserver{hub: hub, metrics: recorder, logger: logger}
}

// OnUpdate converts the update into an event and broadcasts it.
// It has the signature expected by profile.Watcher.Run.
func (o *ProfileObserver) OnUpdate(u profile.Update) {
	if o.metrics != nil {
		o.metrics.ObserveProfileReload(u.Err)
		if u.Profile != nil {
			o.metrics.ObserveCalculation(metrics.SourceProfile, u.Duration, u.Err)
		}
	}

	if o.hub == nil {
		o.logger.Warn("Cannot forward profile update: hub is nil", "path", u.Path)
		return
	}

	o.hub.BroadcastEvent(o.event(u))
	o.logger.Debug("Broadcast profile update", "path", u.Path, "clients", o.hub.ClientCount())
}

func (o *ProfileObserver) event(u profile.Update) Event {
	if u.Err != nil {
		return Event{
			Type: TypeProfileInvalid,
			Data: ProfileErrorData{Path: u.Path, Error: u.Err.Error()},
		}
	}

	data := ProfileData{Path: u.Path, Result: u.Result}
	if u.Profile != nil {
		data.Deck = u.Profile.Deck
	}
	return Event{Type: TypeProfileResult, Data: data}
}
