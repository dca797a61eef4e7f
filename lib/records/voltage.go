package records

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/g02flow/aosdb/lib/aos"
)

const (
	// VoltageSize is the encoded size of a Voltage.
	VoltageSize = 6

	// VoltageInterval is the sampling period of the voltage ring.
	VoltageInterval = 5 * time.Minute

	// VoltageSlots covers two weeks of samples: 12/h * 24 * 14.
	VoltageSlots = 12 * 24 * 14
)

// Voltage is one battery and solar panel sample.
type Voltage struct {
	BatteryMV uint16 // millivolts
	SolarMV   uint16 // millivolts
	Timestamp uint16 // low 16 bits of the unix time of the sample
}

// NewVoltage creates a sample taken at t.
func NewVoltage(batteryMV, solarMV uint16, t time.Time) Voltage {
	return Voltage{BatteryMV: batteryMV, SolarMV: solarMV, Timestamp: Stamp(t)}
}

// Stamp truncates t to the 16 bit timestamp stored in a Voltage.
func Stamp(t time.Time) uint16 {
	return uint16(t.Unix())
}

// Time restores the sample time as the latest time not after ref whose
// truncated timestamp matches. Samples older than ~18 hours before ref
// cannot be told apart.
func (v Voltage) Time(ref time.Time) time.Time {
	now := ref.Unix()
	sec := now&^0xFFFF | int64(v.Timestamp)
	if sec > now {
		sec -= 1 << 16
	}
	return time.Unix(sec, 0).In(ref.Location())
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (v *Voltage) MarshalBinary() ([]byte, error) {
	buf := make([]byte, VoltageSize)
	binary.LittleEndian.PutUint16(buf[0:], v.BatteryMV)
	binary.LittleEndian.PutUint16(buf[2:], v.SolarMV)
	binary.LittleEndian.PutUint16(buf[4:], v.Timestamp)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *Voltage) UnmarshalBinary(data []byte) error {
	if len(data) != VoltageSize {
		return fmt.Errorf("voltage record needs %d bytes, got %d", VoltageSize, len(data))
	}
	v.BatteryMV = binary.LittleEndian.Uint16(data[0:])
	v.SolarMV = binary.LittleEndian.Uint16(data[2:])
	v.Timestamp = binary.LittleEndian.Uint16(data[4:])
	return nil
}

func (v Voltage) String() string {
	return fmt.Sprintf("Battery %d mV, solar %d mV (%s) at stamp %d", v.BatteryMV, v.SolarMV, v.Battery(), v.Timestamp)
}

// VoltageSlot returns the ring slot of a sample taken at t.
func VoltageSlot(t time.Time) aos.Key {
	interval := int64(VoltageInterval / time.Second)
	return aos.Key((t.Unix() / interval) % VoltageSlots)
}

// --------------------------------------------------------------------------
// Battery state
// --------------------------------------------------------------------------

// BatteryState classifies the battery voltage of a sample.
type BatteryState uint8

const (
	BatteryLow  BatteryState = iota // below 3.6 V
	BatteryOK                       // 3.6 to 4.1 V
	BatteryFull                     // above 4.1 V
)

const (
	batteryLowMV  = 3600
	batteryFullMV = 4100
)

func (s BatteryState) String() string {
	switch s {
	case BatteryLow:
		return "low"
	case BatteryOK:
		return "ok"
	case BatteryFull:
		return "full"
	default:
		return "unknown"
	}
}

// Battery returns the state of the battery.
func (v Voltage) Battery() BatteryState {
	switch {
	case v.BatteryMV < batteryLowMV:
		return BatteryLow
	case v.BatteryMV > batteryFullMV:
		return BatteryFull
	default:
		return BatteryOK
	}
}
