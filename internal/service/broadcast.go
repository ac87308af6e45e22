package service

// Game event types pushed to websocket subscribers.
const (
	EventGameStarted   = "game_started"
	EventActionApplied = "action_applied"
	EventTurnChanged   = "turn_changed"
	EventGameEnded     = "game_ended"
	EventGameLoaded    = "game_loaded"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}
