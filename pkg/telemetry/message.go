// Package telemetry defines the decoded NMEA 2000 message model handed
// over by the external decoder, and sources that produce such messages.
package telemetry

import (
	"context"
	"time"
)

// Well-known PGNs (message group ids) the logger maps or tracks.
const (
	PGNSpeed         uint32 = 128259
	PGNWaterDepth    uint32 = 128267
	PGNVesselHeading uint32 = 127250
	PGNRateOfTurn    uint32 = 127251
	PGNAttitude      uint32 = 127257
	PGNPositionRapid uint32 = 129025
	PGNCOGSOGRapid   uint32 = 129026
	PGNWindData      uint32 = 130306
	PGNEnvironmental uint32 = 130310
	PGNBatteryStatus uint32 = 127508
	PGNEngineRapid   uint32 = 127488
)

// Field is one decoded field of a message. Value is a scalar (float64,
// int64, string or bool depending on the field); Unit is the decoder's
// unit annotation, empty when the field is unitless.
type Field struct {
	ID    string      `json:"id"`
	Value interface{} `json:"value"`
	Unit  string      `json:"unit_of_measurement,omitempty"`
}

// Message is one decoded NMEA 2000 message. Fields for one message arrive
// together; messages for different PGNs carry no ordering guarantee.
type Message struct {
	PGN         uint32    `json:"PGN"`
	Description string    `json:"description,omitempty"`
	Source      uint8     `json:"source,omitempty"`
	Destination uint8     `json:"destination,omitempty"`
	Priority    uint8     `json:"priority,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	Fields      []Field   `json:"fields"`
}

// Field returns the field with the given id, or false when the message
// does not carry it.
func (m *Message) Field(id string) (Field, bool) {
	for _, f := range m.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Handler consumes decoded messages. Implementations must return quickly
// and must not block on I/O; they run on the decoder's receive path.
type Handler func(msg *Message)

// Source produces decoded messages and delivers them to a Handler.
// The real source wraps the external CAN decoder; ReplaySource feeds
// captured messages for offline runs and tests.
type Source interface {
	// Run delivers messages to handler until the stream ends or ctx is
	// cancelled.
	Run(ctx context.Context, handler Handler) error
}
