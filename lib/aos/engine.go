package aos

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/g02flow/aosdb/lib/nvs"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("aos")

// table is an installed TableDef together with its open namespace handle.
type table struct {
	def    TableDef
	handle nvs.Handle
	lock   *xsync.RBMutex // shared by reads, exclusive for writes
}

// Engine stores fixed-size records in the namespaces of one backend partition.
//
// Thread-safety: all methods are safe for concurrent use. Reads of a table run
// in parallel, writes to a table are serialised.
type Engine struct {
	backend   nvs.Backend
	partition string
	tables    []*table // indexed by TableID
	metrics   *metrics.Set
	closed    atomic.Bool
}

// Compile-time check that Engine implements RecordStore.
var _ RecordStore = (*Engine)(nil)

// NewEngine validates defs, initialises the partition and opens the namespace
// of every table read-write (creating it if missing). Handles stay open until
// Close. Errors are returned to the caller, which decides whether to abort.
func NewEngine(backend nvs.Backend, partition string, defs []TableDef) (*Engine, error) {
	if err := validateDefs(defs); err != nil {
		return nil, err
	}

	if err := backend.InitPartition(partition); err != nil {
		Logger.Errorf("failed to initialize partition %s (%s)", partition, nvs.CodeOf(err))
		return nil, wrapError(RetCBackend, err, "initializing partition %s", partition)
	}

	e := &Engine{
		backend:   backend,
		partition: partition,
		tables:    make([]*table, 0, len(defs)),
		metrics:   newMetricSet(),
	}

	for _, def := range defs {
		h, err := backend.OpenNamespace(partition, def.Namespace, nvs.ReadWrite)
		if err != nil {
			Logger.Errorf("failed to open namespace %s (%s)", def.Namespace, nvs.CodeOf(err))
			_ = e.Close()
			return nil, wrapError(RetCBackend, err, "opening namespace %s", def.Namespace)
		}
		e.tables = append(e.tables, &table{
			def:    def,
			handle: h,
			lock:   xsync.NewRBMutex(),
		})
		Logger.Debugf("installed %s", def)
	}

	Logger.Infof("%d tables ready in partition %s", len(e.tables), partition)
	return e, nil
}

// --------------------------------------------------------------------------
// Record access
// --------------------------------------------------------------------------

// Read copies the record stored under key into out. It returns false if the
// table is unknown, the key is out of range, no record exists or the backend
// fails. out is left untouched unless true is returned.
func (e *Engine) Read(id TableID, key Key, out []byte) bool {
	return e.ReadE(id, key, out) == nil
}

// Write stores in under key and commits it. It returns true only if both the
// store and the commit succeeded.
func (e *Engine) Write(id TableID, key Key, in []byte) bool {
	return e.WriteE(id, key, in) == nil
}

// ReadE is Read returning the reason of a failure as *Error.
// out must hold at least RecordSize bytes; only the first RecordSize bytes
// are written.
func (e *Engine) ReadE(id TableID, key Key, out []byte) error {
	t, err := e.lookup(id, key)
	if err != nil {
		e.observe(e.namespaceOf(id), "read", err)
		return err
	}

	err = e.read(t, key, out)
	e.observe(t.def.Namespace, "read", err)
	return err
}

func (e *Engine) read(t *table, key Key, out []byte) error {
	if len(out) < t.def.RecordSize {
		return NewError(RetCInvalidLength, "buffer of %d bytes is too small for %d byte records of %s", len(out), t.def.RecordSize, t.def.Namespace)
	}

	token := t.lock.RLock()
	defer t.lock.RUnlock(token)

	k := backendKey(key)

	// size check first, so a foreign blob never leaks into out
	size, err := t.handle.GetBlob(k, nil)
	if err != nil {
		return e.backendError(t, "read", key, err)
	}
	if size != t.def.RecordSize {
		Logger.Warningf("%s/%s holds %d bytes, expected %d", t.def.Namespace, k, size, t.def.RecordSize)
		return NewError(RetCInvalidLength, "%s/%s holds %d bytes instead of %d", t.def.Namespace, k, size, t.def.RecordSize)
	}

	if _, err := t.handle.GetBlob(k, out[:t.def.RecordSize]); err != nil {
		return e.backendError(t, "read", key, err)
	}
	return nil
}

// WriteE is Write returning the reason of a failure as *Error.
// in must hold exactly RecordSize bytes.
func (e *Engine) WriteE(id TableID, key Key, in []byte) error {
	t, err := e.lookup(id, key)
	if err != nil {
		e.observe(e.namespaceOf(id), "write", err)
		return err
	}

	err = e.write(t, key, in)
	e.observe(t.def.Namespace, "write", err)
	return err
}

func (e *Engine) write(t *table, key Key, in []byte) error {
	if len(in) != t.def.RecordSize {
		return NewError(RetCInvalidLength, "record of %d bytes does not match the %d byte records of %s", len(in), t.def.RecordSize, t.def.Namespace)
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	start := time.Now()
	k := backendKey(key)
	if err := t.handle.SetBlob(k, in); err != nil {
		return e.backendError(t, "write", key, err)
	}
	if err := t.handle.Commit(); err != nil {
		return e.backendError(t, "commit", key, err)
	}
	e.observeCommit(t.def.Namespace, start)
	return nil
}

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// TableStatus reports the backend usage of one table.
type TableStatus struct {
	Def              TableDef
	Records          int // Stored records
	UsedEntries      int // Entries used by the records of the table
	DataBytes        int // Key and record bytes
	MedianRecordSize int // Estimated from a size histogram
}

// Status returns the entry usage of the engine's partition.
func (e *Engine) Status() (nvs.Stats, error) {
	if e.closed.Load() {
		return nvs.Stats{}, NewError(RetCClosed, "engine is closed")
	}
	stats, err := e.backend.Stats(e.partition)
	if err != nil {
		return nvs.Stats{}, wrapError(RetCBackend, err, "reading stats of partition %s", e.partition)
	}
	return stats, nil
}

// TableStatus returns the entry usage of a single table.
func (e *Engine) TableStatus(id TableID) (TableStatus, error) {
	t, err := e.lookup(id, 0)
	if err != nil {
		return TableStatus{}, err
	}

	token := t.lock.RLock()
	defer t.lock.RUnlock(token)

	info, err := t.handle.Info()
	if err != nil {
		return TableStatus{}, wrapError(RetCBackend, err, "reading usage of %s", t.def.Namespace)
	}
	return TableStatus{
		Def:              t.def,
		Records:          info.Keys,
		UsedEntries:      info.UsedEntries,
		DataBytes:        info.DataBytes,
		MedianRecordSize: info.MedianBlobSize,
	}, nil
}

// Tables returns the installed table definitions in id order.
func (e *Engine) Tables() []TableDef {
	defs := make([]TableDef, len(e.tables))
	for i, t := range e.tables {
		defs[i] = t.def
	}
	return defs
}

// Table returns the definition of a table.
func (e *Engine) Table(id TableID) (TableDef, bool) {
	if int(id) >= len(e.tables) {
		return TableDef{}, false
	}
	return e.tables[id].def, true
}

// Partition returns the name of the backend partition.
func (e *Engine) Partition() string {
	return e.partition
}

// Close closes all namespace handles. The engine cannot be used afterwards.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for _, t := range e.tables {
		t.lock.Lock()
		if err := t.handle.Close(); err != nil {
			errs = append(errs, wrapError(RetCBackend, err, "closing namespace %s", t.def.Namespace))
		}
		t.lock.Unlock()
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// lookup resolves a table and checks the key against its ceiling without
// touching the backend.
func (e *Engine) lookup(id TableID, key Key) (*table, error) {
	if e.closed.Load() {
		return nil, NewError(RetCClosed, "engine is closed")
	}
	if int(id) >= len(e.tables) {
		Logger.Debugf("rejected access to unknown table %d", id)
		return nil, NewError(RetCUnknownTable, "table %d is not registered", id)
	}

	t := e.tables[id]
	if key > t.def.MaxKey {
		Logger.Debugf("rejected key %d of %s (max %d)", key, t.def.Namespace, t.def.MaxKey)
		return nil, NewError(RetCKeyOutOfRange, "key %d of %s is above %d", key, t.def.Namespace, t.def.MaxKey)
	}
	return t, nil
}

func (e *Engine) namespaceOf(id TableID) string {
	if int(id) < len(e.tables) {
		return e.tables[id].def.Namespace
	}
	return unknownTable
}

// backendError maps a backend error to an *Error. Missing records are
// expected and not logged.
func (e *Engine) backendError(t *table, op string, key Key, err error) error {
	if nvs.IsNotFound(err) {
		return wrapError(RetCNotFound, err, "no record %d in %s", key, t.def.Namespace)
	}
	Logger.Errorf("%s of %s/%d failed (%s): %v", op, t.def.Namespace, key, nvs.CodeOf(err), err)
	return wrapError(RetCBackend, err, "%s of %s/%d", op, t.def.Namespace, key)
}
