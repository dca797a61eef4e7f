// Package aos implements record tables ("arrays of structures") on top of a
// namespaced flash key-value backend (see package nvs).
//
// A table is described by a TableDef: the backend namespace holding its
// records, the fixed size of every record and the largest valid key. Records
// are opaque byte blocks of exactly RecordSize bytes, addressed by a numeric
// Key that is stored as its decimal string in the table's namespace.
//
// Usage:
//
//	flash := nvs.NewFlash(nvs.DefaultOptions("/var/lib/aosdb"))
//	engine, err := aos.NewEngine(flash, "g02nvs", []aos.TableDef{
//		{ID: 0, Namespace: "oDuration", RecordSize: 32, MaxKey: 630},
//		{ID: 1, Namespace: "oVoltage", RecordSize: 6, MaxKey: 4032},
//	})
//	if err != nil {
//		// the partition could not be mounted, abort
//	}
//	ok := engine.Write(1, 2, record)
//	ok = engine.Read(1, 2, buf)
//
// Read and Write report success as a boolean. Not found, key out of range,
// unknown table and backend failures all return false. ReadE and WriteE return
// the same outcome as an *Error whose RetCode tells them apart.
//
// Every Write stores the record and commits it before returning, so a record
// that was reported as written survives a power loss.
//
// Typed Access:
//
// Table wraps one table for a record type implementing
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler on its pointer:
//
//	voltages, _ := aos.NewTable[records.Voltage](engine, 1)
//	voltages.Write(2, records.Voltage{BatteryMV: 3400, SolarMV: 4200})
//	v, ok := voltages.Read(2)
//
// Thread Safety:
//
// The Engine guards each table with a reader/writer lock: reads of a table run
// in parallel, writes to a table are exclusive.
package aos
