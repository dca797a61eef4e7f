package aos

import (
	"encoding"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// RecordStore is the record access consumed by typed accessors.
// Engine implements it.
type RecordStore interface {
	// ReadE copies the record of table id stored under key into out.
	ReadE(id TableID, key Key, out []byte) (err error)
	// WriteE stores and commits the record in under key of table id.
	WriteE(id TableID, key Key, in []byte) (err error)
	// Table returns the definition of a registered table.
	Table(id TableID) (def TableDef, ok bool)
}

// Record is implemented by pointers to record types with a fixed binary layout.
type Record[T any] interface {
	*T
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// --------------------------------------------------------------------------
// Typed Accessor
// --------------------------------------------------------------------------

// Table gives typed access to one table of a RecordStore. T is the record
// type, P its pointer type carrying the binary encoding.
type Table[T any, P Record[T]] struct {
	store RecordStore
	def   TableDef
}

// NewTable creates an accessor for the table id of store.
func NewTable[T any, P Record[T]](store RecordStore, id TableID) (*Table[T, P], error) {
	def, ok := store.Table(id)
	if !ok {
		return nil, NewError(RetCUnknownTable, "table %d is not registered", id)
	}
	return &Table[T, P]{store: store, def: def}, nil
}

// Def returns the definition of the accessed table.
func (t *Table[T, P]) Def() TableDef {
	return t.def
}

// Read returns the record stored under key. ok is false if there is none
// or it could not be read.
func (t *Table[T, P]) Read(key Key) (record T, ok bool) {
	record, err := t.ReadE(key)
	return record, err == nil
}

// Write stores record under key and reports whether it was committed.
func (t *Table[T, P]) Write(key Key, record T) bool {
	return t.WriteE(key, record) == nil
}

// ReadE returns the record stored under key or the reason it could not be read.
func (t *Table[T, P]) ReadE(key Key) (T, error) {
	var record T
	buf := make([]byte, t.def.RecordSize)
	if err := t.store.ReadE(t.def.ID, key, buf); err != nil {
		return record, err
	}
	if err := P(&record).UnmarshalBinary(buf); err != nil {
		return record, wrapError(RetCInvalidLength, err, "decoding record %d of %s", key, t.def.Namespace)
	}
	return record, nil
}

// WriteE stores record under key or returns the reason it could not be stored.
func (t *Table[T, P]) WriteE(key Key, record T) error {
	buf, err := P(&record).MarshalBinary()
	if err != nil {
		return wrapError(RetCInvalidLength, err, "encoding record %d of %s", key, t.def.Namespace)
	}
	return t.store.WriteE(t.def.ID, key, buf)
}
