// Package schema defines the persisted row format for Honkey Pi CSV logs.
// The column list, order, and version marker are a wire contract with
// downstream race-analysis tooling and must never change within a format
// version: exactly 181 named columns, a fixed "!v" version line, and the
// boat identifier in the first cell of every row.
package schema

import "fmt"

// ColumnCount is the fixed number of columns in every header and row.
const ColumnCount = 181

// Version is the format revision marker written as the second line of
// every file.
const Version = "!v11.10.18"

// DefaultBoatID is the value of the Boat column unless configured otherwise.
const DefaultBoatID = "0"

// Indexes of the columns the logger writes itself. All remaining columns
// are filled from the latest-value buffer or left empty.
const (
	ColBoat = 0
	ColUtc  = 1
)

// Columns is the ordered column list, matching the reference file
// 2021Nov14 (1).csv byte for byte. Do not reorder or rename.
var Columns = [ColumnCount]string{
	"Boat", "Utc", "BSP", "AWA", "AWS", "TWA", "TWS", "TWD", "RudderFwd", "Leeway",
	"Set", "Drift", "HDG", "AirTemp", "SeaTemp", "Baro", "Depth", "Heel", "Trim", "Rudder",
	"Tab", "Forestay", "Downhaul", "MastAng", "FStayLen", "MastButt", "Load S", "Load P", "Rake", "Volts",
	"ROT", "GpQual", "PDOP", "GpsNum", "GpsAge", "Altitude", "GeoSep", "GpsMode", "Lat", "Lon",
	"COG", "SOG", "DiffStn", "Error", "RunnerS", "RunnerP", "Vang", "Trav", "Main", "KeelAng",
	"KeelHt", "Board", "EngOilPres", "RPM 1", "RPM 2", "Board P", "Board S", "DistToLn", "RchTmToLn", "RchDtToLn",
	"GPS time", "TWD+90", "TWD-90", "Downhaul2", "Mk Lat", "Mk Lon", "Port lat", "Port lon", "Stbd lat", "Stbd lon",
	"HPE", "RH", "Lead P", "Lead S", "BackStay", "User 0", "User 1", "User 2", "User 3", "User 4",
	"User 5", "User 6", "User 7", "User 8", "User 9", "User 10", "User 11", "User 12", "User 13", "User 14",
	"User 15", "User 16", "User 17", "User 18", "User 19", "User 20", "User 21", "User 22", "User 23", "User 24",
	"User 25", "User 26", "User 27", "User 28", "User 29", "User 30", "User 31", "TmToGun", "TmToLn", "Burn",
	"BelowLn", "GunBlwLn", "WvSigHt", "WvSigPd", "WvMaxHt", "WvMaxPd", "Slam", "Heave", "MWA", "MWS",
	"Boom", "Twist", "TackLossT", "TackLossD", "TrimRate", "HeelRate", "DeflectorP", "RudderP", "RudderS", "RudderToe",
	"BspTr", "FStayInner", "DeflectorS", "Bobstay", "Outhaul", "D0 P", "D0 S", "D1 P", "D1 S", "V0 P",
	"V0 S", "V1 P", "V1 S", "BoomAng", "Cunningham", "FStayInHal", "JibFurl", "JibH", "MastCant", "J1",
	"J2", "J3", "J4", "Foil P", "Foil S", "Reacher", "Blade", "Staysail", "Solent", "Tack",
	"TackP", "TackS", "DeflectU", "DeflectL", "WinchP", "WinchS", "SpinP", "SpinS", "MainH", "Mast2",
	"DepthAft", "Burn%", "GunBspTarg%", "GunBspPol%", "EngTemp", "EngOilTemp", "TranOilTemp", "TranOilPres", "FuelLevel", "Amps",
	"Charge%",
}

// indexByName is built once at package init for O(1) name lookups.
var indexByName = func() map[string]int {
	m := make(map[string]int, ColumnCount)
	for i, name := range Columns {
		m[name] = i
	}
	return m
}()

// Index returns the column index for a name, or false if the name is not
// part of the format.
func Index(name string) (int, bool) {
	i, ok := indexByName[name]
	return i, ok
}

// MustIndex returns the column index for a name and panics if the name is
// unknown. Intended for static tables built at startup.
func MustIndex(name string) int {
	i, ok := indexByName[name]
	if !ok {
		panic(fmt.Sprintf("schema: unknown column %q", name))
	}
	return i
}

// Header returns the column names as a slice in wire order.
func Header() []string {
	return Columns[:]
}
