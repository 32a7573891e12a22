package models

import "time"

// Engine event types published to Kafka and fanned out over WebSocket.
const (
	EventAnalysisStarted   = "analysis.started"
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
	EventBarsStored        = "bars.stored"
)

// EngineEvent is one lifecycle notification.
type EngineEvent struct {
	Type    string                 `json:"type"`
	Symbol  string                 `json:"symbol"`
	At      time.Time              `json:"at"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

func NewEngineEvent(typ, symbol string) EngineEvent {
	return EngineEvent{Type: typ, Symbol: symbol, At: time.Now().UTC(), Payload: map[string]interface{}{}}
}

// With attaches one payload entry and returns the event for chaining.
func (e EngineEvent) With(key string, value interface{}) EngineEvent {
	if e.Payload == nil {
		e.Payload = map[string]interface{}{}
	}
	e.Payload[key] = value
	return e
}
