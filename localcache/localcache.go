// Package localcache holds the device-scoped cart snapshot that backs
// instant UI on reload. It is written synchronously with every in-memory
// mutation, so it is always at least as fresh as the remote store.
package localcache

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"pawmart/models"
	"pawmart/rdx"
)

type Cache interface {
	ReadCart(deviceID string) ([]models.CartLine, error)
	WriteCart(deviceID string, lines []models.CartLine) error
	Clear(deviceID string) error
}

// Redis keeps snapshots under cart:snapshot:<deviceID>.
type Redis struct{}

func NewRedis() *Redis { return &Redis{} }

func snapshotKey(deviceID string) string {
	return "cart:snapshot:" + deviceID
}

func (c *Redis) ReadCart(deviceID string) ([]models.CartLine, error) {
	raw, err := rdx.RdxGet(snapshotKey(deviceID))
	if errors.Is(err, redis.Nil) {
		return []models.CartLine{}, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []models.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Redis) WriteCart(deviceID string, lines []models.CartLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return rdx.RdxSet(snapshotKey(deviceID), string(data))
}

func (c *Redis) Clear(deviceID string) error {
	return rdx.RdxDel(snapshotKey(deviceID))
}

// Memory is the in-process cache used by tests.
type Memory struct {
	mu    sync.Mutex
	carts map[string][]models.CartLine
}

func NewMemory() *Memory {
	return &Memory{carts: make(map[string][]models.CartLine)}
}

func (c *Memory) ReadCart(deviceID string) ([]models.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]models.CartLine, len(c.carts[deviceID]))
	copy(lines, c.carts[deviceID])
	return lines, nil
}

func (c *Memory) WriteCart(deviceID string, lines []models.CartLine) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]models.CartLine, len(lines))
	copy(snapshot, lines)
	c.carts[deviceID] = snapshot
	return nil
}

func (c *Memory) Clear(deviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, deviceID)
	return nil
}
