package dsg

import (
	"sync"
	"testing"
)

func defaultLayerKeys() map[LayerID]byte {
	return map[LayerID]byte{
		LayerObjects:   'o',
		LayerPlaces:    'p',
		LayerRooms:     'r',
		LayerBuildings: 'b',
	}
}

func TestNewSharedGraphRejectsDuplicateKeys(t *testing.T) {
	keys := defaultLayerKeys()
	keys[LayerRooms] = 'o'
	if _, err := NewSharedGraph(keys); err == nil {
		t.Error("expected error for duplicate key characters")
	}
}

func TestSharedGraphPrefixLookup(t *testing.T) {
	s, err := NewSharedGraph(defaultLayerKeys())
	if err != nil {
		t.Fatalf("NewSharedGraph failed: %v", err)
	}

	layer, ok := s.LayerForPrefix('p')
	if !ok || layer != LayerPlaces {
		t.Errorf("LayerForPrefix('p') = %v, %v", layer, ok)
	}
	if _, ok := s.LayerForPrefix('z'); ok {
		t.Error("unknown prefix should not resolve")
	}
	prefix, ok := s.PrefixForLayer(LayerBuildings)
	if !ok || prefix != 'b' {
		t.Errorf("PrefixForLayer(buildings) = %c, %v", prefix, ok)
	}
}

func TestSharedGraphFreshness(t *testing.T) {
	s, err := NewSharedGraph(defaultLayerKeys())
	if err != nil {
		t.Fatalf("NewSharedGraph failed: %v", err)
	}

	if updated, _ := s.Updated(); updated {
		t.Error("fresh graph should not be marked updated")
	}

	s.Modify(func(g *Graph) {
		g.NewNode(LayerObjects, NodeAttributes{})
	})

	if updated, _ := s.Updated(); !updated {
		t.Error("graph should be marked updated after Modify")
	}

	if _, ok := s.ConsumeUpdate(); !ok {
		t.Error("ConsumeUpdate should report the pending update")
	}
	if updated, _ := s.Updated(); updated {
		t.Error("flag should be cleared after ConsumeUpdate")
	}
	if _, ok := s.ConsumeUpdate(); ok {
		t.Error("second consume should find nothing")
	}
}

func TestSharedGraphConcurrentReaders(t *testing.T) {
	s, err := NewSharedGraph(defaultLayerKeys())
	if err != nil {
		t.Fatalf("NewSharedGraph failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Modify(func(g *Graph) {
					g.NewNode(LayerPlaces, NodeAttributes{})
				})
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Read(func(g *Graph) {
					_ = g.NumNodes()
				})
			}
		}()
	}
	wg.Wait()

	s.Read(func(g *Graph) {
		if g.GetLayer(LayerPlaces).NumNodes() != 400 {
			t.Errorf("expected 400 place nodes, got %d", g.GetLayer(LayerPlaces).NumNodes())
		}
	})
}
