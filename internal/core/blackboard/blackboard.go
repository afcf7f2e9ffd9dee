// Package blackboard provides a thread-safe key/value scratchpad shared by
// leaf tasks, validity predicates and sensors. The control-flow engine never
// reads it; it exists purely for the game-specific hooks around the engine.
package blackboard

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 16

type shard struct {
	mu      sync.RWMutex
	data    map[string]any
	updated map[string]time.Time
}

// Blackboard shards its keyspace by xxhash so sensors writing from the host
// loop and predicates reading from the tick path contend per shard, not
// globally.
type Blackboard struct {
	shards  [shardCount]shard
	version atomic.Int64
}

// New builds an empty blackboard.
func New() *Blackboard {
	bb := &Blackboard{}
	for i := range bb.shards {
		bb.shards[i].data = make(map[string]any)
		bb.shards[i].updated = make(map[string]time.Time)
	}
	return bb
}

func (bb *Blackboard) shardFor(key string) *shard {
	return &bb.shards[xxhash.Sum64String(key)%shardCount]
}

// Set stores a value.
func (bb *Blackboard) Set(key string, value any) {
	s := bb.shardFor(key)
	s.mu.Lock()
	s.data[key] = value
	s.updated[key] = time.Now()
	s.mu.Unlock()
	bb.version.Add(1)
}

// Get retrieves a value.
func (bb *Blackboard) Get(key string) (any, bool) {
	s := bb.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Delete removes a key. It reports whether the key existed.
func (bb *Blackboard) Delete(key string) bool {
	s := bb.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	delete(s.updated, key)
	bb.version.Add(1)
	return true
}

// GetString retrieves a string value.
func (bb *Blackboard) GetString(key string) (string, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt retrieves an int value; float64 is accepted for JSON round-trips.
func (bb *Blackboard) GetInt(key string) (int, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// GetFloat retrieves a float64 value.
func (bb *Blackboard) GetFloat(key string) (float64, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// GetBool retrieves a bool value.
func (bb *Blackboard) GetBool(key string) (bool, bool) {
	v, ok := bb.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// LastUpdated returns when the key was last written.
func (bb *Blackboard) LastUpdated(key string) (time.Time, bool) {
	s := bb.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.updated[key]
	return t, ok
}

// Version returns a monotonically increasing change counter.
func (bb *Blackboard) Version() int64 { return bb.version.Load() }

// Keys returns a snapshot of all keys.
func (bb *Blackboard) Keys() []string {
	var keys []string
	for i := range bb.shards {
		s := &bb.shards[i]
		s.mu.RLock()
		for k := range s.data {
			keys = append(keys, k)
		}
		s.mu.RUnlock()
	}
	return keys
}

// Len returns the number of stored keys.
func (bb *Blackboard) Len() int {
	n := 0
	for i := range bb.shards {
		s := &bb.shards[i]
		s.mu.RLock()
		n += len(s.data)
		s.mu.RUnlock()
	}
	return n
}

// Snapshot returns a copy of the whole keyspace.
func (bb *Blackboard) Snapshot() map[string]any {
	out := make(map[string]any)
	for i := range bb.shards {
		s := &bb.shards[i]
		s.mu.RLock()
		for k, v := range s.data {
			out[k] = v
		}
		s.mu.RUnlock()
	}
	return out
}

// ToJSON exports the current contents.
func (bb *Blackboard) ToJSON() ([]byte, error) {
	data, err := json.Marshal(bb.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("export blackboard: %w", err)
	}
	return data, nil
}

// FromJSON merges previously exported contents into the blackboard.
func (bb *Blackboard) FromJSON(data []byte) error {
	var in map[string]any
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("import blackboard: %w", err)
	}
	for k, v := range in {
		bb.Set(k, v)
	}
	return nil
}
