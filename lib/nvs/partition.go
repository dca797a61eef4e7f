package nvs

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/g02flow/aosdb/lib/db"
	"github.com/g02flow/aosdb/lib/db/engines/maple"
	"github.com/rcrowley/go-metrics"
)

const (
	namespaceShards = 4            // maple shards per namespace
	compactMinBytes = 4 * PageSize // logs below this size are never compacted
	sealOverhead    = 12 + 16      // GCM nonce + tag
	commitFrameSize = frameHeaderSize + bodyHeaderSize
)

// --------------------------------------------------------------------------
// Partition structure
// --------------------------------------------------------------------------

type namespace struct {
	name string
	data db.KVDB
}

type partitionMetrics struct {
	commitLatency metrics.Histogram // microseconds per commit (write + fsync)
	commits       metrics.Counter
	bytesWritten  metrics.Counter
	compactions   metrics.Counter
}

// partition is one mounted partition file.
type partition struct {
	name   string
	path   string
	total  int        // total entries
	enc    *encryptor // nil if not encrypted
	header []byte     // encoded file header

	mu         sync.Mutex // guards everything below and all writes to the namespaces
	file       *os.File
	offset     int64 // end of the last committed batch
	namespaces map[string]*namespace
	used       int // used entries
	closed     atomic.Bool

	metrics partitionMetrics
}

func newPartitionMetrics(r metrics.Registry, name string) partitionMetrics {
	prefix := "nvs." + name + "."
	return partitionMetrics{
		commitLatency: metrics.GetOrRegisterHistogram(prefix+"commit.latency_us", r, metrics.NewExpDecaySample(1028, 0.015)),
		commits:       metrics.GetOrRegisterCounter(prefix+"commits", r),
		bytesWritten:  metrics.GetOrRegisterCounter(prefix+"bytes_written", r),
		compactions:   metrics.GetOrRegisterCounter(prefix+"compactions", r),
	}
}

// --------------------------------------------------------------------------
// Mounting
// --------------------------------------------------------------------------

// openPartition opens (or formats) the partition file and replays its log.
func openPartition(opts *Options, name string, registry metrics.Registry) (*partition, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, wrapError(ErrCIO, err, "creating directory %s", opts.Dir)
	}

	path := filepath.Join(opts.Dir, name+fileExt)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, wrapError(ErrCIO, err, "opening partition file %s", path)
	}

	p := &partition{
		name:       name,
		path:       path,
		total:      totalEntries(opts.PartitionSize),
		file:       f,
		namespaces: make(map[string]*namespace),
		metrics:    newPartitionMetrics(registry, name),
	}

	if err := p.load(opts.Encryption); err != nil {
		_ = p.file.Close()
		return nil, err
	}
	return p, nil
}

// load replays an existing log or formats an empty file.
func (p *partition) load(config EncryptionConfig) error {
	info, err := p.file.Stat()
	if err != nil {
		return wrapError(ErrCIO, err, "stat partition file %s", p.path)
	}
	if info.Size() == 0 {
		return p.format(config)
	}

	r := bufio.NewReader(io.NewSectionReader(p.file, 0, info.Size()))
	header, headerSize, err := readHeader(r)
	if err != nil {
		return wrapError(ErrCCorrupted, err, "partition %s", p.name)
	}

	if header.encrypted() != config.Enabled {
		if header.encrypted() {
			return NewError(ErrCCorrupted, "partition %s is encrypted but no key was given", p.name)
		}
		return NewError(ErrCCorrupted, "partition %s is not encrypted", p.name)
	}
	if header.encrypted() {
		if p.enc, err = newEncryptor(config, header.Salt[:]); err != nil {
			return wrapError(ErrCCorrupted, err, "partition %s", p.name)
		}
		check, err := p.enc.open(header.Check)
		if err != nil || !bytes.Equal(check, checkPlaintext) {
			return NewError(ErrCCorrupted, "wrong encryption key for partition %s", p.name)
		}
	}
	p.header = encodeHeader(header)

	good, err := p.replay(r, headerSize)
	if err != nil {
		return err
	}
	if good < info.Size() {
		Logger.Warningf("partition %s: discarding %d bytes of incomplete log tail", p.name, info.Size()-good)
		if err := p.file.Truncate(good); err != nil {
			return wrapError(ErrCIO, err, "truncating partition file %s", p.path)
		}
		if err := p.file.Sync(); err != nil {
			return wrapError(ErrCIO, err, "syncing partition file %s", p.path)
		}
	}
	p.offset = good

	for name, ns := range p.namespaces {
		info := ns.data.GetInfo()
		Logger.Debugf("partition %s: namespace %s holds %d keys (%d bytes) after %d replayed writes, shard balance %.2f",
			p.name, name, info.EntryCount, info.SizeBytes, info.WriteSeq, info.ShardDistribution.DistributionQuality)
	}

	if p.needsCompaction() {
		return p.compact()
	}
	return nil
}

// format writes a fresh header to an empty partition file.
func (p *partition) format(config EncryptionConfig) error {
	header := fileHeader{Version: logVersion}
	if config.Enabled {
		salt, err := newSalt()
		if err != nil {
			return wrapError(ErrCIO, err, "generating salt for partition %s", p.name)
		}
		copy(header.Salt[:], salt)
		header.Flags |= flagEncrypted

		if p.enc, err = newEncryptor(config, salt); err != nil {
			return wrapError(ErrCCorrupted, err, "partition %s", p.name)
		}
		if header.Check, err = p.enc.seal(checkPlaintext); err != nil {
			return wrapError(ErrCIO, err, "sealing key check block of partition %s", p.name)
		}
	}

	p.header = encodeHeader(header)
	if _, err := p.file.WriteAt(p.header, 0); err != nil {
		return wrapError(ErrCIO, err, "formatting partition %s", p.name)
	}
	if err := p.file.Sync(); err != nil {
		return wrapError(ErrCIO, err, "syncing partition file %s", p.path)
	}
	p.offset = int64(len(p.header))

	Logger.Infof("partition %s formatted with %d entries", p.name, p.total)
	return nil
}

// replay applies all complete batches of the log and returns the offset
// behind the last one.
func (p *partition) replay(r io.Reader, start int64) (int64, error) {
	var (
		offset = start
		good   = start
		batch  []logRecord
	)

	for {
		body, n, err := readFrame(r)
		if err == io.EOF {
			break
		}
		if err == errTornRecord {
			Logger.Warningf("partition %s: torn record at offset %d", p.name, offset)
			break
		}
		if err != nil {
			return 0, wrapError(ErrCIO, err, "reading partition %s", p.name)
		}
		offset += n

		if p.enc != nil {
			if body, err = p.enc.open(body); err != nil {
				return 0, wrapError(ErrCCorrupted, err, "decrypting record at offset %d of partition %s", offset-n, p.name)
			}
		}

		rec, err := decodeBody(body)
		if err != nil {
			Logger.Warningf("partition %s: %v at offset %d", p.name, err, offset-n)
			break
		}

		if rec.Op != opCommit {
			batch = append(batch, rec)
			continue
		}
		for _, pending := range batch {
			p.apply(pending)
		}
		batch = batch[:0]
		good = offset
	}

	if len(batch) > 0 {
		Logger.Warningf("partition %s: discarding %d uncommitted records", p.name, len(batch))
	}
	return good, nil
}

// --------------------------------------------------------------------------
// State changes (callers hold mu or own the partition exclusively)
// --------------------------------------------------------------------------

func (p *partition) apply(rec logRecord) {
	switch rec.Op {
	case opNamespace:
		p.ensureNamespace(rec.Namespace)
	case opSet:
		ns := p.ensureNamespace(rec.Namespace)
		p.used += p.spanDelta(ns, rec.Key, len(rec.Value))
		ns.data.Set(rec.Key, rec.Value)
	case opErase:
		ns := p.ensureNamespace(rec.Namespace)
		if old, ok := ns.data.Get(rec.Key); ok {
			p.used -= blobSpan(len(old))
			ns.data.Delete(rec.Key)
		}
	}
}

func (p *partition) ensureNamespace(name string) *namespace {
	if ns, ok := p.namespaces[name]; ok {
		return ns
	}
	ns := &namespace{
		name: name,
		data: maple.NewMapleDB(&maple.DBOptions{NumShards: namespaceShards}),
	}
	p.namespaces[name] = ns
	p.used++
	return ns
}

// spanDelta returns how many entries storing size bytes under key adds.
func (p *partition) spanDelta(ns *namespace, key string, size int) int {
	delta := blobSpan(size)
	if old, ok := ns.data.Get(key); ok {
		delta -= blobSpan(len(old))
	}
	return delta
}

// available returns the entries left for new data, keeping one page free.
func (p *partition) available() int {
	return max(p.total-EntriesPerPage-p.used, 0)
}

// openNamespace returns the namespace, creating it durably in ReadWrite mode.
func (p *partition) openNamespace(name string, mode OpenMode) (*namespace, error) {
	if err := checkName("namespace", name); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return nil, NewError(ErrCNotInitialized, "partition %s is not initialized", p.name)
	}
	if ns, ok := p.namespaces[name]; ok {
		return ns, nil
	}
	if mode != ReadWrite {
		return nil, NewError(ErrCNotFound, "namespace %s not found in partition %s", name, p.name)
	}
	if len(p.namespaces) >= MaxNamespaces || p.available() < 1 {
		return nil, NewError(ErrCNotEnoughSpace, "no room for namespace %s in partition %s", name, p.name)
	}

	rec := logRecord{Op: opNamespace, Namespace: name}
	if err := p.appendBatch([]logRecord{rec}); err != nil {
		return nil, err
	}
	p.apply(rec)

	Logger.Debugf("partition %s: created namespace %s", p.name, name)
	return p.namespaces[name], nil
}

func (p *partition) stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		UsedEntries:      p.used,
		FreeEntries:      max(p.total-p.used, 0),
		AvailableEntries: p.available(),
		TotalEntries:     p.total,
		NamespaceCount:   len(p.namespaces),
	}
}

// --------------------------------------------------------------------------
// Log writing
// --------------------------------------------------------------------------

func (p *partition) encodeFrame(rec logRecord) ([]byte, error) {
	body := encodeBody(rec)
	if p.enc != nil {
		sealed, err := p.enc.seal(body)
		if err != nil {
			return nil, err
		}
		body = sealed
	}
	return frame(body), nil
}

// appendBatch durably appends batch followed by a commit marker.
// On failure the file is cut back to the previous batch.
func (p *partition) appendBatch(batch []logRecord) error {
	start := time.Now()

	var buf bytes.Buffer
	for _, rec := range batch {
		fr, err := p.encodeFrame(rec)
		if err != nil {
			return wrapError(ErrCIO, err, "encoding %s record for partition %s", rec.Op, p.name)
		}
		buf.Write(fr)
	}
	fr, err := p.encodeFrame(logRecord{Op: opCommit})
	if err != nil {
		return wrapError(ErrCIO, err, "encoding commit record for partition %s", p.name)
	}
	buf.Write(fr)

	if _, err := p.file.WriteAt(buf.Bytes(), p.offset); err != nil {
		_ = p.file.Truncate(p.offset)
		return wrapError(ErrCIO, err, "writing to partition %s", p.name)
	}
	if err := p.file.Sync(); err != nil {
		_ = p.file.Truncate(p.offset)
		return wrapError(ErrCIO, err, "syncing partition %s", p.name)
	}
	p.offset += int64(buf.Len())

	p.metrics.commits.Inc(1)
	p.metrics.bytesWritten.Inc(int64(buf.Len()))
	p.metrics.commitLatency.Update(time.Since(start).Microseconds())
	return nil
}

// --------------------------------------------------------------------------
// Compaction
// --------------------------------------------------------------------------

// liveBytes estimates the size of a log holding only the live state.
func (p *partition) liveBytes() int64 {
	overhead := int64(frameHeaderSize + bodyHeaderSize)
	if p.enc != nil {
		overhead += sealOverhead
	}

	size := int64(commitFrameSize)
	for name, ns := range p.namespaces {
		size += overhead + int64(len(name))
		ns.data.Range(func(key string, value []byte) bool {
			size += overhead + int64(len(name)+len(key)+len(value))
			return true
		})
	}
	return size
}

func (p *partition) needsCompaction() bool {
	logSize := p.offset - int64(len(p.header))
	return logSize >= compactMinBytes && p.liveBytes()*2 < logSize
}

// compact rewrites the log with the live state as a single batch and
// atomically replaces the partition file.
func (p *partition) compact() error {
	tmpPath := p.path + ".compact"
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapError(ErrCIO, err, "creating %s", tmpPath)
	}
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return wrapError(ErrCIO, err, "compacting partition %s", p.name)
	}

	w := bufio.NewWriter(tmp)
	written := int64(0)
	write := func(rec logRecord) error {
		fr, err := p.encodeFrame(rec)
		if err != nil {
			return err
		}
		n, err := w.Write(fr)
		written += int64(n)
		return err
	}

	n, err := w.Write(p.header)
	if err != nil {
		return fail(err)
	}
	written += int64(n)

	names := make([]string, 0, len(p.namespaces))
	for name := range p.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := write(logRecord{Op: opNamespace, Namespace: name}); err != nil {
			return fail(err)
		}
		var rangeErr error
		p.namespaces[name].data.Range(func(key string, value []byte) bool {
			rangeErr = write(logRecord{Op: opSet, Namespace: name, Key: key, Value: value})
			return rangeErr == nil
		})
		if rangeErr != nil {
			return fail(rangeErr)
		}
	}
	if err := write(logRecord{Op: opCommit}); err != nil {
		return fail(err)
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return fail(err)
	}
	if err := syncDir(filepath.Dir(p.path)); err != nil {
		_ = tmp.Close()
		return wrapError(ErrCIO, err, "syncing directory of partition %s", p.name)
	}

	before := p.offset
	_ = p.file.Close()
	p.file = tmp
	p.offset = written
	p.metrics.compactions.Inc(1)

	Logger.Infof("partition %s compacted from %d to %d bytes", p.name, before, written)
	return nil
}

// syncDir makes renames in dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

func (p *partition) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, ns := range p.namespaces {
		_ = ns.data.Close()
	}
	if err := p.file.Close(); err != nil {
		return wrapError(ErrCIO, err, "closing partition %s", p.name)
	}
	return nil
}
