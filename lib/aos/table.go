package aos

import (
	"fmt"
	"strconv"

	"github.com/g02flow/aosdb/lib/nvs"
)

// TableID identifies a registered table. Ids are dense, starting at 0.
type TableID uint8

// Key addresses a record inside a table.
type Key uint16

// TableDef describes one table: the backend namespace holding its records,
// the fixed size of every record and the largest valid key (inclusive).
type TableDef struct {
	ID         TableID
	Namespace  string
	RecordSize int
	MaxKey     Key
}

func (d TableDef) String() string {
	return fmt.Sprintf("table %d (%s): %d byte records, keys 0..%d", d.ID, d.Namespace, d.RecordSize, d.MaxKey)
}

// Slots returns the number of addressable keys.
func (d TableDef) Slots() int {
	return int(d.MaxKey) + 1
}

// backendKey renders a key the way it is stored in the namespace: decimal,
// without padding.
func backendKey(k Key) string {
	return strconv.FormatUint(uint64(k), 10)
}

// validateDefs checks a table registry before it is installed.
func validateDefs(defs []TableDef) error {
	if len(defs) == 0 {
		return NewError(RetCInvalidTable, "no tables defined")
	}
	if len(defs) > nvs.MaxNamespaces {
		return NewError(RetCInvalidTable, "%d tables defined, at most %d are supported", len(defs), nvs.MaxNamespaces)
	}

	namespaces := make(map[string]TableID, len(defs))
	for i, def := range defs {
		if int(def.ID) != i {
			return NewError(RetCInvalidTable, "table %s is registered at position %d, ids must be dense and ordered", def.Namespace, i)
		}
		if def.Namespace == "" || len(def.Namespace) > nvs.MaxNameLength {
			return NewError(RetCInvalidTable, "table %d: namespace %q must have 1 to %d characters", def.ID, def.Namespace, nvs.MaxNameLength)
		}
		if def.RecordSize <= 0 || def.RecordSize > nvs.MaxBlobSize {
			return NewError(RetCInvalidTable, "table %d: record size %d is not in 1..%d", def.ID, def.RecordSize, nvs.MaxBlobSize)
		}
		if other, ok := namespaces[def.Namespace]; ok {
			return NewError(RetCInvalidTable, "tables %d and %d share namespace %s", other, def.ID, def.Namespace)
		}
		namespaces[def.Namespace] = def.ID
	}
	return nil
}
