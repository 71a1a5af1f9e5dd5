package bench

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"indexbench/pkg/common"
)

// pebbleContender 把 pebble LSM 作为磁盘存储引擎的对照组。
// 值是该键的出现次数（uvarint），以便和其他结构一样保留重复键。
type pebbleContender struct {
	root string
	dir  string
	db   *pebble.DB
}

func (c *pebbleContender) Name() string { return NamePebble }

func (c *pebbleContender) Build(ds *Dataset) error {
	c.dir = filepath.Join(c.root, fmt.Sprintf("%s_%d", ds.Distribution, ds.Size))
	if err := os.RemoveAll(c.dir); err != nil {
		return errors.Wrap(err, "pebble: clear dir")
	}
	db, err := pebble.Open(c.dir, &pebble.Options{
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	})
	if err != nil {
		return errors.Wrap(err, "pebble: open")
	}
	c.db = db

	b := db.NewBatch()
	defer b.Close()
	for i := 0; i < len(ds.Keys); {
		j := i + 1
		for j < len(ds.Keys) && ds.Keys[j] == ds.Keys[i] {
			j++
		}
		if err := b.Set(encodeKey(ds.Keys[i]), encodeCount(uint64(j-i)), nil); err != nil {
			return errors.Wrap(err, "pebble: batch set")
		}
		i = j
	}
	if err := b.Commit(pebble.NoSync); err != nil {
		return errors.Wrap(err, "pebble: commit")
	}
	return errors.Wrap(db.Flush(), "pebble: flush")
}

// encodeKey 翻转符号位后按大端编码，使字节序与有符号整数序一致
func encodeKey(k common.KeyType) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(k)^(1<<63))
	return buf[:]
}

func decodeKey(b []byte) common.KeyType {
	return common.KeyType(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func encodeCount(n uint64) []byte {
	return binary.AppendUvarint(nil, n)
}

func decodeCount(b []byte) uint64 {
	n, _ := binary.Uvarint(b)
	return n
}

func (c *pebbleContender) count(key common.KeyType) uint64 {
	val, closer, err := c.db.Get(encodeKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0
	}
	if err != nil {
		log.Printf("[Bench] pebble get %d: %v", key, err)
		return 0
	}
	n := decodeCount(val)
	closer.Close()
	return n
}

func (c *pebbleContender) Lookup(key common.KeyType) bool {
	return c.count(key) > 0
}

func (c *pebbleContender) Range(lo, hi common.KeyType) []common.KeyType {
	if lo > hi {
		return nil
	}
	opts := &pebble.IterOptions{LowerBound: encodeKey(lo)}
	if hi < math.MaxInt64 {
		opts.UpperBound = encodeKey(hi + 1)
	}
	iter, err := c.db.NewIter(opts)
	if err != nil {
		log.Printf("[Bench] pebble iter: %v", err)
		return nil
	}
	defer iter.Close()

	var out []common.KeyType
	for iter.First(); iter.Valid(); iter.Next() {
		k := decodeKey(iter.Key())
		for n := decodeCount(iter.Value()); n > 0; n-- {
			out = append(out, k)
		}
	}
	return out
}

func (c *pebbleContender) Insert(key common.KeyType) bool {
	err := c.db.Set(encodeKey(key), encodeCount(c.count(key)+1), pebble.NoSync)
	if err != nil {
		log.Printf("[Bench] pebble set %d: %v", key, err)
		return false
	}
	return true
}

func (c *pebbleContender) Delete(key common.KeyType) bool {
	n := c.count(key)
	if n == 0 {
		return false
	}
	var err error
	if n == 1 {
		err = c.db.Delete(encodeKey(key), pebble.NoSync)
	} else {
		err = c.db.Set(encodeKey(key), encodeCount(n-1), pebble.NoSync)
	}
	if err != nil {
		log.Printf("[Bench] pebble delete %d: %v", key, err)
		return false
	}
	return true
}

// MemoryUsage 统计 memtable 与磁盘文件总大小
func (c *pebbleContender) MemoryUsage() int {
	if c.db == nil {
		return 0
	}
	m := c.db.Metrics()
	return int(m.MemTable.Size + m.DiskSpaceUsage())
}

func (c *pebbleContender) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return errors.CombineErrors(err, os.RemoveAll(c.dir))
}
