package nvs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// --------------------------------------------------------------------------
// File Header
// --------------------------------------------------------------------------

const (
	magicNum   = "AOSNVS\x00\x00" // File format identifier
	logVersion = 1                // Log format version

	flagEncrypted uint8 = 1 << 0

	// magic (8) + version (1) + flags (1) + salt (16) + check length (2)
	fileHeaderFixedSize = 8 + 1 + 1 + saltSize + 2
)

// fileHeader is written once at the start of every partition file.
type fileHeader struct {
	Version uint8
	Flags   uint8
	Salt    [saltSize]byte
	Check   []byte // checkPlaintext sealed with the partition key (encrypted partitions only)
}

func (h fileHeader) encrypted() bool {
	return h.Flags&flagEncrypted != 0
}

func encodeHeader(h fileHeader) []byte {
	buf := make([]byte, fileHeaderFixedSize+len(h.Check))
	copy(buf[0:8], magicNum)
	buf[8] = h.Version
	buf[9] = h.Flags
	copy(buf[10:10+saltSize], h.Salt[:])
	binary.LittleEndian.PutUint16(buf[10+saltSize:fileHeaderFixedSize], uint16(len(h.Check)))
	copy(buf[fileHeaderFixedSize:], h.Check)
	return buf
}

// readHeader reads the header and returns it together with its encoded size.
func readHeader(r io.Reader) (fileHeader, int64, error) {
	var h fileHeader
	fixed := make([]byte, fileHeaderFixedSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return h, 0, fmt.Errorf("reading file header: %w", err)
	}
	if string(fixed[0:8]) != magicNum {
		return h, 0, errors.New("invalid file format: magic number mismatch")
	}
	h.Version = fixed[8]
	if h.Version != logVersion {
		return h, 0, fmt.Errorf("unsupported version: %d (expected %d)", h.Version, logVersion)
	}
	h.Flags = fixed[9]
	copy(h.Salt[:], fixed[10:10+saltSize])

	checkLen := binary.LittleEndian.Uint16(fixed[10+saltSize:])
	if checkLen > 0 {
		h.Check = make([]byte, checkLen)
		if _, err := io.ReadFull(r, h.Check); err != nil {
			return h, 0, fmt.Errorf("reading key check block: %w", err)
		}
	}
	return h, int64(fileHeaderFixedSize) + int64(checkLen), nil
}

// --------------------------------------------------------------------------
// Log Records
// --------------------------------------------------------------------------

type opType uint8

const (
	opNamespace opType = iota + 1 // Namespace created
	opSet                         // Blob stored
	opErase                       // Key erased
	opCommit                      // End of a committed batch
)

func (o opType) String() string {
	switch o {
	case opNamespace:
		return "Namespace"
	case opSet:
		return "Set"
	case opErase:
		return "Erase"
	case opCommit:
		return "Commit"
	default:
		return "Unknown"
	}
}

// logRecord is one change of a partition.
type logRecord struct {
	Op        opType
	Namespace string
	Key       string
	Value     []byte
}

const (
	// CRC (4) + body length (4)
	frameHeaderSize = 8

	// Op (1) + namespace length (1) + key length (1) + value length (4)
	bodyHeaderSize = 7

	// Upper bound of a body, including the encryption nonce and tag.
	maxBodySize = bodyHeaderSize + 2*MaxNameLength + MaxBlobSize + 64
)

// errTornRecord marks the end of the readable part of a log.
var errTornRecord = errors.New("torn or corrupt log record")

// encodeBody serializes a record into its plaintext body.
func encodeBody(rec logRecord) []byte {
	buf := make([]byte, bodyHeaderSize+len(rec.Namespace)+len(rec.Key)+len(rec.Value))
	buf[0] = byte(rec.Op)
	buf[1] = uint8(len(rec.Namespace))
	buf[2] = uint8(len(rec.Key))
	binary.LittleEndian.PutUint32(buf[3:7], uint32(len(rec.Value)))

	pos := bodyHeaderSize
	pos += copy(buf[pos:], rec.Namespace)
	pos += copy(buf[pos:], rec.Key)
	copy(buf[pos:], rec.Value)
	return buf
}

// decodeBody parses a plaintext body.
func decodeBody(body []byte) (logRecord, error) {
	var rec logRecord
	if len(body) < bodyHeaderSize {
		return rec, fmt.Errorf("record body too short: %d bytes", len(body))
	}

	rec.Op = opType(body[0])
	if rec.Op < opNamespace || rec.Op > opCommit {
		return rec, fmt.Errorf("unknown record type %d", body[0])
	}
	nsLen := int(body[1])
	keyLen := int(body[2])
	valueLen := int(binary.LittleEndian.Uint32(body[3:7]))

	if len(body) != bodyHeaderSize+nsLen+keyLen+valueLen {
		return rec, fmt.Errorf("record body size mismatch: %d bytes for %s", len(body), rec.Op)
	}

	pos := bodyHeaderSize
	rec.Namespace = string(body[pos : pos+nsLen])
	pos += nsLen
	rec.Key = string(body[pos : pos+keyLen])
	pos += keyLen
	if valueLen > 0 {
		rec.Value = make([]byte, valueLen)
		copy(rec.Value, body[pos:])
	}
	return rec, nil
}

// frame prefixes a (possibly encrypted) body with its checksum and length.
func frame(body []byte) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, frameHeaderSize+len(body)))
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(body)))
	buf.Write(hdr[:])
	buf.Write(body)
	return buf.Bytes()
}

// readFrame reads the next frame and returns its body and its size on disk.
// io.EOF is returned at a clean end of the log, errTornRecord for a partial
// or corrupt frame.
func readFrame(r io.Reader) ([]byte, int64, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, errTornRecord
		}
		return nil, 0, err
	}

	checksum := binary.LittleEndian.Uint32(hdr[0:4])
	length := binary.LittleEndian.Uint32(hdr[4:8])
	if length > maxBodySize {
		return nil, 0, errTornRecord
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, errTornRecord
		}
		return nil, 0, err
	}

	if crc32.ChecksumIEEE(body) != checksum {
		return nil, 0, errTornRecord
	}
	return body, int64(frameHeaderSize) + int64(length), nil
}
