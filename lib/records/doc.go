// Package records defines the record tables of the irrigation node and the
// record types stored in them.
//
//   - Durations ("oDuration", 32 byte Duration, keys 0..630): one watering of a
//     station. 10 stations x 3 waterings x 7 days for each of the baseline,
//     previous and current cycle, see DurationSlot.
//   - Voltages ("oVoltage", 6 byte Voltage, keys 0..4032): battery and solar
//     voltage sampled every 5 minutes into a two week ring, see VoltageSlot.
//
// Records are encoded little-endian with a fixed size, so they can be handed
// to the aos engine through aos.Table.
//
// Next to the tables the package keeps the node's boot counter (BootCounter),
// a single int32 in the "store" namespace of the same partition.
package records
