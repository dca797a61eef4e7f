package records

import (
	"encoding/binary"

	"github.com/g02flow/aosdb/lib/nvs"
)

const (
	bootNamespace = "store"
	bootKey       = "val"
)

// BootCounter counts how often the node was started. The count is an int32
// stored under "val" in the "store" namespace of the partition.
type BootCounter struct {
	backend   nvs.Backend
	partition string
}

// NewBootCounter creates a counter in partition of backend.
func NewBootCounter(backend nvs.Backend, partition string) *BootCounter {
	return &BootCounter{backend: backend, partition: partition}
}

// Increment adds one boot to the counter, commits it and returns the new count.
// A missing counter starts at zero.
func (c *BootCounter) Increment() (int32, error) {
	h, err := c.open(nvs.ReadWrite)
	if err != nil {
		return 0, err
	}
	defer h.Close()

	val, err := readCounter(h)
	if err != nil {
		return 0, err
	}

	val++
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(val))
	if err := h.SetBlob(bootKey, buf); err != nil {
		return 0, err
	}
	if err := h.Commit(); err != nil {
		return 0, err
	}

	Logger.Infof("restart counter = %d", val)
	return val, nil
}

// Value returns the current count without changing it.
func (c *BootCounter) Value() (int32, error) {
	h, err := c.open(nvs.ReadOnly)
	if nvs.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer h.Close()

	return readCounter(h)
}

// Reset erases the counter.
func (c *BootCounter) Reset() error {
	h, err := c.open(nvs.ReadWrite)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.EraseKey(bootKey); err != nil {
		if nvs.IsNotFound(err) {
			return nil
		}
		return err
	}
	return h.Commit()
}

func (c *BootCounter) open(mode nvs.OpenMode) (nvs.Handle, error) {
	if err := c.backend.InitPartition(c.partition); err != nil {
		return nil, err
	}
	return c.backend.OpenNamespace(c.partition, bootNamespace, mode)
}

func readCounter(h nvs.Handle) (int32, error) {
	buf := make([]byte, 4)
	n, err := h.GetBlob(bootKey, buf)
	switch {
	case nvs.IsNotFound(err):
		Logger.Infof("restart counter is not initialized yet")
		return 0, nil
	case err != nil:
		return 0, err
	case n != len(buf):
		return 0, nvs.NewError(nvs.ErrCInvalidLength, "restart counter has %d bytes", n)
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}
