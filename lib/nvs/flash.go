package nvs

import (
	"errors"
	"sort"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("nvs")

// --------------------------------------------------------------------------
// Flash
// --------------------------------------------------------------------------

// Flash is the file-backed Backend. Every initialised partition is a single
// log file in the configured directory.
//
// Thread-safety: all methods are safe for concurrent use.
type Flash struct {
	opts     Options
	registry metrics.Registry

	mu         sync.Mutex
	partitions map[string]*partition
}

// Compile-time check that Flash implements Backend.
var _ Backend = (*Flash)(nil)

// NewFlash creates a Flash with the given options. nil selects the
// DefaultOptions for the working directory.
func NewFlash(opts *Options) *Flash {
	if opts == nil {
		opts = DefaultOptions(".")
	}
	o := *opts
	if o.PartitionSize <= 0 {
		o.PartitionSize = DefaultPartitionSize
	}

	return &Flash{
		opts:       o,
		registry:   metrics.NewRegistry(),
		partitions: make(map[string]*partition),
	}
}

// InitPartition mounts the partition, formatting its file if it is new.
// The log is replayed, an incomplete tail is discarded and the log is
// compacted if it is mostly garbage.
func (f *Flash) InitPartition(name string) error {
	if err := checkName("partition", name); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.partitions[name]; ok {
		return nil
	}
	if f.opts.PartitionSize < 2*PageSize {
		return NewError(ErrCNotEnoughSpace, "partition size %d is smaller than two pages", f.opts.PartitionSize)
	}

	p, err := openPartition(&f.opts, name, f.registry)
	if err != nil {
		Logger.Errorf("failed to initialize partition %s: %v", name, err)
		return err
	}
	f.partitions[name] = p

	Logger.Infof("partition %s initialized: %s", name, p.stats())
	return nil
}

// OpenNamespace opens a handle to a namespace of an initialised partition.
func (f *Flash) OpenNamespace(partition, namespace string, mode OpenMode) (Handle, error) {
	p, err := f.partition(partition)
	if err != nil {
		return nil, err
	}
	ns, err := p.openNamespace(namespace, mode)
	if err != nil {
		return nil, err
	}
	return &handle{part: p, ns: ns, mode: mode}, nil
}

// Stats returns the entry usage of an initialised partition.
func (f *Flash) Stats(partition string) (Stats, error) {
	p, err := f.partition(partition)
	if err != nil {
		return Stats{}, err
	}
	return p.stats(), nil
}

// Partitions returns the names of all initialised partitions in sorted order.
func (f *Flash) Partitions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.partitions))
	for name := range f.partitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deinit unmounts a partition. Open handles become invalid and uncommitted
// changes are lost, like on a power cycle.
func (f *Flash) Deinit(partition string) error {
	f.mu.Lock()
	p, ok := f.partitions[partition]
	delete(f.partitions, partition)
	f.mu.Unlock()

	if !ok {
		return NewError(ErrCNotInitialized, "partition %s is not initialized", partition)
	}
	Logger.Debugf("partition %s deinitialized", partition)
	return p.close()
}

// Close unmounts all partitions.
func (f *Flash) Close() error {
	var errs []error
	for _, name := range f.Partitions() {
		if err := f.Deinit(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Metrics returns the registry holding the commit metrics of all partitions.
func (f *Flash) Metrics() metrics.Registry {
	return f.registry
}

func (f *Flash) partition(name string) (*partition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.partitions[name]
	if !ok {
		return nil, NewError(ErrCNotInitialized, "partition %s is not initialized", name)
	}
	return p, nil
}
