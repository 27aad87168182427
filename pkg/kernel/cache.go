package kernel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

var cacheMagic = [8]byte{'T', 'B', 'E', 'M', 'P', 'P', 'I', '1'}

// cacheKey identifies an interaction by the absolute panel coordinates, so a
// rigidly moved panel never hits a stale entry.
type cacheKey struct {
	A, B     [9]float64
	IQA, IQB int32
	K        complex128
}

type cacheRecord struct {
	Key   cacheKey
	Value PPI
}

// Cache memoizes another Kernel. It is safe for concurrent use.
type Cache struct {
	Kernel Kernel

	mu      sync.RWMutex
	entries map[cacheKey]PPI
	hits    int
	misses  int
}

func NewCache(k Kernel) *Cache {
	return &Cache{Kernel: k, entries: make(map[cacheKey]PPI)}
}

func makeKey(a, b PanelRef, k complex128) cacheKey {
	key := cacheKey{IQA: int32(a.IQ), IQB: int32(b.IQ), K: k}
	ta := a.Object.PanelTriangle(a.Panel)
	tb := b.Object.PanelTriangle(b.Panel)
	for i := 0; i < 3; i++ {
		key.A[3*i], key.A[3*i+1], key.A[3*i+2] = ta[i].X, ta[i].Y, ta[i].Z
		key.B[3*i], key.B[3*i+1], key.B[3*i+2] = tb[i].X, tb[i].Y, tb[i].Z
	}
	return key
}

func (c *Cache) Interact(a, b PanelRef, k complex128) (PPI, error) {
	key := makeKey(a, b, k)

	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return v, nil
	}

	v, err := c.Kernel.Interact(a, b, k)
	if err != nil {
		return PPI{}, err
	}

	c.mu.Lock()
	c.entries[key] = v
	c.misses++
	c.mu.Unlock()
	return v, nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) Write(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, cacheMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(c.entries))); err != nil {
		return err
	}
	for key, value := range c.entries {
		if err := binary.Write(bw, binary.LittleEndian, cacheRecord{Key: key, Value: value}); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read merges the records of a cache stream into c.
func (c *Cache) Read(r io.Reader) error {
	br := bufio.NewReader(r)
	var magic [8]byte
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("reading cache header: %w", err)
	}
	if magic != cacheMagic {
		return fmt.Errorf("not an interaction cache file")
	}
	var n uint64
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("reading cache header: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		var rec cacheRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("reading cache record %d of %d: %w", i, n, err)
		}
		c.entries[rec.Key] = rec.Value
	}
	return nil
}

func (c *Cache) Store(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Cache) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Read(f)
}
