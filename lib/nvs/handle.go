package nvs

import (
	"bytes"
	"sync/atomic"
)

// handle implements Handle for one namespace of a partition.
//
// Thread-safety: all methods are safe for concurrent use. Changes staged by
// one handle are committed only by that handle.
type handle struct {
	part    *partition
	ns      *namespace
	mode    OpenMode
	pending []logRecord // guarded by part.mu
	undo    []undoEntry // previous values of the pending records, guarded by part.mu
	closed  atomic.Bool
}

// undoEntry is the value a key held before a staged change.
type undoEntry struct {
	key    string
	value  []byte
	exists bool
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (h *handle) valid() error {
	if h.closed.Load() {
		return NewError(ErrCInvalidHandle, "handle of namespace %s is closed", h.ns.name)
	}
	if h.part.closed.Load() {
		return NewError(ErrCInvalidHandle, "partition %s of namespace %s is not initialized", h.part.name, h.ns.name)
	}
	return nil
}

func (h *handle) writable() error {
	if err := h.valid(); err != nil {
		return err
	}
	if h.mode != ReadWrite {
		return NewError(ErrCReadOnly, "namespace %s was opened %s", h.ns.name, h.mode)
	}
	return nil
}

// --------------------------------------------------------------------------
// Handle Methods
// --------------------------------------------------------------------------

func (h *handle) GetBlob(key string, out []byte) (int, error) {
	if err := h.valid(); err != nil {
		return 0, err
	}
	if err := checkName("key", key); err != nil {
		return 0, err
	}

	value, ok := h.ns.data.Get(key)
	if !ok {
		return 0, NewError(ErrCNotFound, "key %s not found in namespace %s", key, h.ns.name)
	}
	if out == nil {
		return len(value), nil
	}
	if len(out) < len(value) {
		return 0, NewError(ErrCInvalidLength, "buffer of %d bytes is too small for the %d byte value of key %s", len(out), len(value), key)
	}
	return copy(out, value), nil
}

func (h *handle) SetBlob(key string, value []byte) error {
	if err := h.writable(); err != nil {
		return err
	}
	if err := checkName("key", key); err != nil {
		return err
	}
	if len(value) > MaxBlobSize {
		return NewError(ErrCValueTooLong, "value of key %s has %d bytes, at most %d are allowed", key, len(value), MaxBlobSize)
	}

	p := h.part
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := h.valid(); err != nil {
		return err
	}

	delta := p.spanDelta(h.ns, key, len(value))
	if avail := p.available(); delta > avail {
		return NewError(ErrCNotEnoughSpace, "key %s needs %d more entries, partition %s has %d available", key, delta, p.name, avail)
	}

	h.stage(key)
	h.ns.data.Set(key, value)
	p.used += delta
	h.pending = append(h.pending, logRecord{Op: opSet, Namespace: h.ns.name, Key: key, Value: bytes.Clone(value)})
	return nil
}

func (h *handle) EraseKey(key string) error {
	if err := h.writable(); err != nil {
		return err
	}
	if err := checkName("key", key); err != nil {
		return err
	}

	p := h.part
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := h.valid(); err != nil {
		return err
	}

	old, ok := h.ns.data.Get(key)
	if !ok {
		return NewError(ErrCNotFound, "key %s not found in namespace %s", key, h.ns.name)
	}
	h.stage(key)
	h.ns.data.Delete(key)
	p.used -= blobSpan(len(old))
	h.pending = append(h.pending, logRecord{Op: opErase, Namespace: h.ns.name, Key: key})
	return nil
}

func (h *handle) Commit() error {
	if err := h.writable(); err != nil {
		return err
	}

	p := h.part
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := h.valid(); err != nil {
		return err
	}
	if len(h.pending) == 0 {
		return nil
	}
	if err := p.appendBatch(h.pending); err != nil {
		Logger.Warningf("commit of namespace %s failed, dropping %d staged changes", h.ns.name, len(h.pending))
		h.rollback()
		return err
	}
	h.pending = nil
	h.undo = nil
	return nil
}

func (h *handle) Info() (NamespaceInfo, error) {
	if err := h.valid(); err != nil {
		return NamespaceInfo{}, err
	}

	used := 0
	h.ns.data.Range(func(_ string, value []byte) bool {
		used += blobSpan(len(value))
		return true
	})
	info := h.ns.data.GetInfo()
	return NamespaceInfo{
		Keys:            h.ns.data.Len(),
		UsedEntries:     used,
		DataBytes:       info.SizeBytes,
		AverageBlobSize: info.AverageValueSize,
		MedianBlobSize:  info.MedianValueSize,
	}, nil
}

func (h *handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	h.part.mu.Lock()
	defer h.part.mu.Unlock()

	if len(h.pending) > 0 {
		Logger.Warningf("closing handle of namespace %s with %d uncommitted changes", h.ns.name, len(h.pending))
		h.rollback()
	}
	return nil
}

// stage remembers the current value of key before a change. Callers hold
// part.mu.
func (h *handle) stage(key string) {
	old, ok := h.ns.data.Get(key)
	h.undo = append(h.undo, undoEntry{key: key, value: old, exists: ok})
}

// rollback restores the values and the entry accounting of all pending
// changes in reverse order and drops them. Callers hold part.mu.
func (h *handle) rollback() {
	p := h.part
	for i := len(h.undo) - 1; i >= 0; i-- {
		u := h.undo[i]
		if cur, ok := h.ns.data.Get(u.key); ok {
			p.used -= blobSpan(len(cur))
			h.ns.data.Delete(u.key)
		}
		if u.exists {
			h.ns.data.Set(u.key, u.value)
			p.used += blobSpan(len(u.value))
		}
	}
	h.pending = nil
	h.undo = nil
}
