package aos

import (
	"encoding/binary"
	"errors"
	"testing"
)

// sample is a voltage-like record used to exercise the typed accessor
type sample struct {
	Battery uint16
	Solar   uint16
	Stamp   uint16
}

func (s *sample) MarshalBinary() ([]byte, error) {
	return voltage(s.Battery, s.Solar, s.Stamp), nil
}

func (s *sample) UnmarshalBinary(data []byte) error {
	if len(data) != 6 {
		return errors.New("sample needs 6 bytes")
	}
	s.Battery = binary.LittleEndian.Uint16(data[0:])
	s.Solar = binary.LittleEndian.Uint16(data[2:])
	s.Stamp = binary.LittleEndian.Uint16(data[4:])
	return nil
}

// badSample encodes to the wrong size
type badSample struct{}

func (*badSample) MarshalBinary() ([]byte, error) { return []byte{1}, nil }
func (*badSample) UnmarshalBinary([]byte) error   { return nil }

// TestTypedAccessor tests reading and writing records through a typed table
func TestTypedAccessor(t *testing.T) {
	e := newFlashEngine(t, newTestFlash(t))

	voltages, err := NewTable[sample](e, voltageTable)
	if err != nil {
		t.Fatalf("Failed to create accessor: %v", err)
	}
	if voltages.Def().Namespace != "oVoltage" {
		t.Errorf("Unexpected table %s", voltages.Def())
	}

	want := sample{Battery: 3400, Solar: 4200, Stamp: 3600}
	if !voltages.Write(2, want) {
		t.Fatalf("Expected write to succeed")
	}
	got, ok := voltages.Read(2)
	if !ok || got != want {
		t.Errorf("Expected %+v, got %+v (ok=%v)", want, got, ok)
	}

	if _, ok := voltages.Read(3); ok {
		t.Errorf("Expected read of a missing record to fail")
	}
	if _, err := voltages.ReadE(5000); CodeOf(err) != RetCKeyOutOfRange {
		t.Errorf("Expected %s, got %v", RetCKeyOutOfRange, err)
	}

	// a record type of the wrong size is rejected by the engine
	bad, err := NewTable[badSample](e, voltageTable)
	if err != nil {
		t.Fatalf("Failed to create accessor: %v", err)
	}
	if err := bad.WriteE(2, badSample{}); CodeOf(err) != RetCInvalidLength {
		t.Errorf("Expected %s, got %v", RetCInvalidLength, err)
	}

	if _, err := NewTable[sample](e, 3); CodeOf(err) != RetCUnknownTable {
		t.Errorf("Expected %s, got %v", RetCUnknownTable, err)
	}
}
