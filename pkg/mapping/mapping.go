// Package mapping routes decoded message fields into schema columns.
//
// The route table is static data built once at startup: each rule names a
// (PGN, field id) pair and the columns it lands in. The schema is a closed
// set, so fields without a rule are dropped silently rather than treated
// as errors; extending coverage means adding a rule, not code.
package mapping

import (
	"time"

	"go.uber.org/zap"

	"github.com/efhkdmbc/honkey-pi/pkg/buffer"
	"github.com/efhkdmbc/honkey-pi/pkg/logger"
	"github.com/efhkdmbc/honkey-pi/pkg/schema"
	"github.com/efhkdmbc/honkey-pi/pkg/telemetry"
)

// Rule routes one decoded field to one or more schema columns.
type Rule struct {
	PGN     uint32
	Field   string
	Columns []string
}

// DefaultRules covers the instruments a stock NMEA 2000 network reports.
// Column names are resolved against the schema when the table is built.
var DefaultRules = []Rule{
	{telemetry.PGNSpeed, "speed_water_referenced", []string{"BSP"}},
	{telemetry.PGNSpeed, "speed_ground_referenced", []string{"SOG"}},
	{telemetry.PGNWaterDepth, "depth", []string{"Depth"}},
	{telemetry.PGNVesselHeading, "heading", []string{"HDG"}},
	{telemetry.PGNRateOfTurn, "rate", []string{"ROT"}},
	{telemetry.PGNAttitude, "pitch", []string{"Trim"}},
	{telemetry.PGNAttitude, "roll", []string{"Heel"}},
	{telemetry.PGNPositionRapid, "latitude", []string{"Lat"}},
	{telemetry.PGNPositionRapid, "longitude", []string{"Lon"}},
	{telemetry.PGNCOGSOGRapid, "course_over_ground", []string{"COG"}},
	{telemetry.PGNCOGSOGRapid, "speed_over_ground", []string{"SOG"}},
	{telemetry.PGNWindData, "wind_speed", []string{"AWS"}},
	{telemetry.PGNWindData, "wind_angle", []string{"AWA"}},
	{telemetry.PGNEnvironmental, "water_temperature", []string{"SeaTemp"}},
	{telemetry.PGNEnvironmental, "outside_ambient_air_temperature", []string{"AirTemp"}},
	{telemetry.PGNEnvironmental, "atmospheric_pressure", []string{"Baro"}},
	{telemetry.PGNBatteryStatus, "voltage", []string{"Volts"}},
	{telemetry.PGNEngineRapid, "engine_speed", []string{"RPM 1"}},
}

type routeKey struct {
	pgn   uint32
	field string
}

// Table is the compiled route table. Read-only after construction.
type Table struct {
	routes map[routeKey][]int
}

// NewTable compiles rules into a lookup table. It panics on a rule naming
// an unknown column; rules are static data and a bad one is a programming
// error caught at startup.
func NewTable(rules []Rule) *Table {
	routes := make(map[routeKey][]int, len(rules))
	for _, r := range rules {
		k := routeKey{pgn: r.PGN, field: r.Field}
		for _, name := range r.Columns {
			routes[k] = append(routes[k], schema.MustIndex(name))
		}
	}
	return &Table{routes: routes}
}

// DefaultTable compiles DefaultRules.
func DefaultTable() *Table {
	return NewTable(DefaultRules)
}

// Lookup returns the column indexes for a (PGN, field id) pair.
func (t *Table) Lookup(pgn uint32, field string) ([]int, bool) {
	cols, ok := t.routes[routeKey{pgn: pgn, field: field}]
	return cols, ok
}

// Mapper applies the route table to incoming messages, writing matched
// fields into the latest-value buffer. This is the only telemetry-driven
// mutation path of the buffer.
type Mapper struct {
	table *Table
	buf   *buffer.Buffer
	log   *zap.Logger
}

// NewMapper creates a mapper over the given table and buffer.
func NewMapper(table *Table, buf *buffer.Buffer) *Mapper {
	return &Mapper{
		table: table,
		buf:   buf,
		log:   logger.With(zap.String("component", "mapper")),
	}
}

// Ingest routes every field of msg into its mapped columns, stamping each
// write with at. Fields without a route, and malformed fields (empty id or
// missing value), are skipped; the remaining fields of the same message
// are still ingested. Returns the number of column writes performed.
func (m *Mapper) Ingest(msg *telemetry.Message, at time.Time) int {
	if msg == nil {
		return 0
	}

	written := 0
	for _, f := range msg.Fields {
		if f.ID == "" || f.Value == nil {
			continue
		}
		cols, ok := m.table.Lookup(msg.PGN, f.ID)
		if !ok {
			continue
		}
		for _, col := range cols {
			m.buf.Update(col, f.Value, f.Unit, at)
			written++
		}
	}
	return written
}
