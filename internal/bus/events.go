// Package bus provides the async event bus that decouples the connector
// from the code driving it.
package bus

// Event is a single bus event. Type is the topic string the event is
// published under, Source identifies the session that produced it.
type Event struct {
	Type   string `json:"type"`
	Data   any    `json:"data"`
	Source string `json:"source"`
}

// Handler receives events for a subscribed topic.
type Handler func(Event)
