// Package honkeypi records decoded NMEA 2000 boat telemetry into
// fixed-schema CSV session files at a steady one-row-per-second cadence.
//
// The logger sits downstream of an external bus decoder. Decoded messages
// arrive at whatever rate the bus produces them; each arriving field is
// routed into a latest-value buffer keyed by output column. Independently,
// a fixed-cadence scheduler snapshots the buffer once per second and
// appends one row to the session file, stamped with the ideal grid
// timestamp in Excel serial-day form.
//
// # Architecture
//
// Data flows through four stages:
//
// 1. Source (pkg/telemetry): delivers decoded messages, either live from
// the decoder's output stream or replayed from a JSON-lines capture.
//
// 2. Mapper (pkg/mapping): routes (PGN, field id) pairs to output columns
// and writes the decoded values into the latest-value buffer.
//
// 3. Scheduler (pkg/scheduler): ticks on an additive 1 Hz grid computed
// from the session start, so scheduling jitter never accumulates, and
// hands a buffer snapshot to the sink each tick.
//
// 4. Sink (pkg/sink): appends rows to the session CSV file, flushing to
// disk every few rows so an abrupt power loss costs only the tail.
//
// # Quick Start
//
// Record a session from a capture file:
//
//	import (
//	    "context"
//	    "github.com/efhkdmbc/honkey-pi/internal/session"
//	    "github.com/efhkdmbc/honkey-pi/pkg/config"
//	    "github.com/efhkdmbc/honkey-pi/pkg/telemetry"
//	)
//
//	cfg := config.Default()
//	cfg.Logging.DataDirectory = "/home/pi/honkey_pi_data"
//
//	source := telemetry.NewReplaySource("trip.jsonl")
//	err := session.New(cfg, source).Run(context.Background())
//
// # Key Packages
//
//	pkg/schema     - The fixed 181-column output schema
//	pkg/serial     - Excel serial-day timestamp codec
//	pkg/buffer     - Latest-value buffer shared by mapper and scheduler
//	pkg/mapping    - PGN/field to column routing
//	pkg/scheduler  - Drift-free 1 Hz sampling loop
//	pkg/sink       - CSV session file writer
//	pkg/validate   - Recorded-file format and cadence checks
package honkeypi
