package testing

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/g02flow/aosdb/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Range&Len", func(t *testing.T) {
			testRangeLen(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	testKey := "3"
	testValue1 := []byte("record-one")
	testValue2 := []byte("record-two")

	database.Set(testKey, testValue1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after overwrite", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = database.Get("4"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// Get must return a copy
	result[0] = 'X'
	again, _ := database.Get(testKey)
	if !bytes.Equal(again, testValue2) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	// Set must store a copy
	input := []byte("mutable")
	database.Set("5", input)
	input[0] = 'X'
	stored, _ := database.Get("5")
	if !bytes.Equal(stored, []byte("mutable")) {
		t.Errorf("Set should store a copy of the value, got %s", stored)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Set("1", []byte("one"))
	database.Set("2", []byte("two"))

	database.Delete("1")

	if _, exists := database.Get("1"); exists {
		t.Errorf("Expected key 1 to be deleted")
	}
	if _, exists := database.Get("2"); !exists {
		t.Errorf("Expected key 2 to be unaffected by deleting key 1")
	}

	// deleting a missing key is a no-op
	database.Delete("missing")
}

func testRangeLen(t *testing.T, database db.KVDB) {
	defer database.Close()

	const n = 100
	for i := 0; i < n; i++ {
		database.Set(strconv.Itoa(i), []byte{byte(i)})
	}

	if database.Len() != n {
		t.Errorf("Expected Len %d, got %d", n, database.Len())
	}

	seen := make(map[string]bool)
	database.Range(func(key string, value []byte) bool {
		i, err := strconv.Atoi(key)
		if err != nil {
			t.Errorf("Unexpected key %q", key)
			return true
		}
		if len(value) != 1 || value[0] != byte(i) {
			t.Errorf("Unexpected value %v for key %s", value, key)
		}
		seen[key] = true
		return true
	})
	if len(seen) != n {
		t.Errorf("Expected Range to visit %d keys, visited %d", n, len(seen))
	}

	visited := 0
	database.Range(func(string, []byte) bool {
		visited++
		return visited < 10
	})
	if visited != 10 {
		t.Errorf("Expected Range to stop after 10 entries, visited %d", visited)
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	// empty value
	database.Set("empty", []byte{})
	value, exists := database.Get("empty")
	if !exists || len(value) != 0 {
		t.Errorf("Expected empty value to be stored, got exists=%v len=%d", exists, len(value))
	}

	// nil value is stored as empty
	database.Set("nil", nil)
	if _, exists = database.Get("nil"); !exists {
		t.Errorf("Expected nil value to be stored")
	}

	// large value
	large := bytes.Repeat([]byte{0xAB}, 508000)
	database.Set("large", large)
	value, _ = database.Get("large")
	if !bytes.Equal(value, large) {
		t.Errorf("Large value was not stored correctly")
	}

	// binary keys are not special
	database.Set("\x00", []byte("zero"))
	if value, exists = database.Get("\x00"); !exists || string(value) != "zero" {
		t.Errorf("Expected key with null byte to be stored")
	}
}

func testConcurrency(t *testing.T, database db.KVDB) {
	defer database.Close()

	const (
		workers = 8
		perWork = 200
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				key := fmt.Sprintf("%d", w*perWork+i)
				database.Set(key, []byte(key))
				if value, ok := database.Get(key); !ok || string(value) != key {
					t.Errorf("Expected to read back %s, got %s (ok=%v)", key, value, ok)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if database.Len() != workers*perWork {
		t.Errorf("Expected %d entries, got %d", workers*perWork, database.Len())
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Set("1", make([]byte, 6))
	database.Set("22", make([]byte, 32))

	info := database.GetInfo()
	if info.EntryCount != 2 {
		t.Errorf("Expected EntryCount 2, got %d", info.EntryCount)
	}
	if info.SizeBytes < 6+32 {
		t.Errorf("Expected SizeBytes to cover both values, got %d", info.SizeBytes)
	}
	if info.MedianValueSize == 0 || info.AverageValueSize != (6+32)/2 {
		t.Errorf("Unexpected value sizes %+v", info)
	}
	if info.WriteSeq < 2 || info.ShardCount == 0 {
		t.Errorf("Unexpected write sequence or shard count %+v", info)
	}
}
