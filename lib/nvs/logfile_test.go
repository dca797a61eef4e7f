package nvs

import (
	"bytes"
	"io"
	"testing"
)

// TestReadFrame tests frame decoding at the end of a log
func TestReadFrame(t *testing.T) {
	valid := frame(encodeBody(logRecord{Op: opSet, Namespace: "oVoltage", Key: "12", Value: []byte{1, 2, 3, 4, 5, 6}}))

	flipped := bytes.Clone(valid)
	flipped[len(flipped)-1] ^= 0xFF

	oversized := bytes.Clone(valid)
	oversized[4], oversized[5], oversized[6], oversized[7] = 0xFF, 0xFF, 0xFF, 0x7F

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"valid", valid, nil},
		{"empty", nil, io.EOF},
		{"partial header", valid[:3], errTornRecord},
		{"partial body", valid[:len(valid)-2], errTornRecord},
		{"checksum mismatch", flipped, errTornRecord},
		{"oversized", oversized, errTornRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, n, err := readFrame(bytes.NewReader(tt.data))
			if err != tt.err {
				t.Fatalf("Expected error %v, got %v", tt.err, err)
			}
			if err != nil {
				return
			}
			if n != int64(len(valid)) {
				t.Errorf("Expected frame size %d, got %d", len(valid), n)
			}
			rec, err := decodeBody(body)
			if err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if rec.Op != opSet || rec.Namespace != "oVoltage" || rec.Key != "12" || len(rec.Value) != 6 {
				t.Errorf("Unexpected record %+v", rec)
			}
		})
	}
}

// TestDecodeBodyErrors tests that malformed bodies are rejected
func TestDecodeBodyErrors(t *testing.T) {
	body := encodeBody(logRecord{Op: opErase, Namespace: "store", Key: "val"})

	unknownOp := bytes.Clone(body)
	unknownOp[0] = 42

	tests := []struct {
		name string
		body []byte
	}{
		{"too short", body[:3]},
		{"unknown op", unknownOp},
		{"size mismatch", append(bytes.Clone(body), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeBody(tt.body); err == nil {
				t.Errorf("Expected decodeBody to fail")
			}
		})
	}

	rec, err := decodeBody(body)
	if err != nil || rec.Op != opErase || rec.Key != "val" || rec.Value != nil {
		t.Errorf("Unexpected record %+v (%v)", rec, err)
	}
}

// TestHeader tests header encoding including the key check block
func TestHeader(t *testing.T) {
	h := fileHeader{Version: logVersion, Flags: flagEncrypted, Check: []byte("sealed-check")}
	copy(h.Salt[:], "0123456789abcdef")

	data := encodeHeader(h)
	got, size, err := readHeader(bytes.NewReader(append(data, 0xAA)))
	if err != nil {
		t.Fatalf("Failed to read header: %v", err)
	}
	if size != int64(len(data)) {
		t.Errorf("Expected header size %d, got %d", len(data), size)
	}
	if !got.encrypted() || got.Salt != h.Salt || !bytes.Equal(got.Check, h.Check) {
		t.Errorf("Unexpected header %+v", got)
	}

	bad := bytes.Clone(data)
	bad[0] = 'X'
	if _, _, err := readHeader(bytes.NewReader(bad)); err == nil {
		t.Errorf("Expected magic number mismatch to fail")
	}

	future := bytes.Clone(data)
	future[8] = logVersion + 1
	if _, _, err := readHeader(bytes.NewReader(future)); err == nil {
		t.Errorf("Expected unsupported version to fail")
	}
}
