package connector

import "github.com/avitale/rocketbridge/internal/driver"

// OutboundMessage is the payload of the consumed send topic: a logical
// destination plus an opaque body. To is "@handle" for a direct message,
// "#channel" or a bare channel name otherwise.
type OutboundMessage struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// InboundMessage is a platform message enriched by inbound
// classification. RoomName is "#<name>" for channel traffic and null
// for direct messages.
type InboundMessage struct {
	driver.Message
	RoomName *string `json:"roomName"`
	Direct   bool    `json:"direct"`
}

// Joined is the payload of a joined event: Channel for a single join,
// Channels for a batched one.
type Joined struct {
	Channel  string   `json:"channel,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// Parted is the payload of a parted event.
type Parted struct {
	Channel string `json:"channel"`
}

// outboundFromEvent recovers an OutboundMessage from a bus payload,
// which may be a typed value or a decoded-JSON map (relay traffic).
func outboundFromEvent(data any) OutboundMessage {
	switch v := data.(type) {
	case OutboundMessage:
		return v
	case *OutboundMessage:
		if v != nil {
			return *v
		}
	case map[string]any:
		to, _ := v["to"].(string)
		content, _ := v["content"].(string)
		return OutboundMessage{To: to, Content: content}
	}
	return OutboundMessage{}
}
