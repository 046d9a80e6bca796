package service

// Broadcaster sends real-time match events to connected spectators.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastMatchEvent(matchID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastMatchEvent(string, string, any) {}

// Spectator event types.
const (
	EventMatchStarted   = "match_started"
	EventMatchTick      = "match_tick"
	EventPlanetCaptured = "planet_captured"
	EventMatchEnded     = "match_ended"
)
