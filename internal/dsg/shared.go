package dsg

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// SharedGraph wraps the single process-wide Graph instance with the
// freshness flag and last-update timestamp. One writer (the update
// pipeline) commits whole passes under the write lock; any number of
// readers traverse a consistent view under the read lock. The flag is
// cleared by whichever reader is designated to consume the update,
// not by the writer.
type SharedGraph struct {
	mu sync.RWMutex

	graph      *Graph
	updated    bool
	lastUpdate time.Time

	prefixLayers map[byte]LayerID
	layerPrefix  map[LayerID]byte
}

// NewSharedGraph builds the graph from a fixed layer-to-key mapping
// (e.g. objects 'o', places 'p', rooms 'r', buildings 'b'). The layer
// order is the ascending rank of the mapped layers. Duplicate key
// characters are a configuration error.
func NewSharedGraph(layerKeys map[LayerID]byte) (*SharedGraph, error) {
	if len(layerKeys) == 0 {
		return nil, fmt.Errorf("dsg: empty layer key mapping")
	}
	order := make([]LayerID, 0, len(layerKeys))
	prefixLayers := make(map[byte]LayerID, len(layerKeys))
	layerPrefix := make(map[LayerID]byte, len(layerKeys))
	for layer, key := range layerKeys {
		if dup, ok := prefixLayers[key]; ok {
			return nil, fmt.Errorf("dsg: key %q mapped to both %v and %v", key, dup, layer)
		}
		order = append(order, layer)
		prefixLayers[key] = layer
		layerPrefix[layer] = key
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	g, err := NewGraph(order)
	if err != nil {
		return nil, err
	}
	return &SharedGraph{
		graph:        g,
		prefixLayers: prefixLayers,
		layerPrefix:  layerPrefix,
	}, nil
}

// Modify runs one whole update pass under the write lock, then marks
// the graph updated. Readers never observe a partially applied pass.
func (s *SharedGraph) Modify(fn func(*Graph)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.graph)
	s.updated = true
	s.lastUpdate = time.Now()
}

// Read runs fn against a consistent view of the graph. The graph must
// not be retained or mutated through the callback.
func (s *SharedGraph) Read(fn func(*Graph)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.graph)
}

// Updated reports the freshness flag and the last update time without
// consuming the flag.
func (s *SharedGraph) Updated() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated, s.lastUpdate
}

// ConsumeUpdate clears the freshness flag, returning the last update
// time and whether an unconsumed update was pending. Only the
// designated consuming reader should call this.
func (s *SharedGraph) ConsumeUpdate() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.updated {
		return s.lastUpdate, false
	}
	s.updated = false
	return s.lastUpdate, true
}

// LayerForPrefix classifies a variable-key prefix character by layer.
func (s *SharedGraph) LayerForPrefix(key byte) (LayerID, bool) {
	l, ok := s.prefixLayers[key]
	return l, ok
}

// PrefixForLayer returns the key character configured for a layer.
func (s *SharedGraph) PrefixForLayer(layer LayerID) (byte, bool) {
	k, ok := s.layerPrefix[layer]
	return k, ok
}
