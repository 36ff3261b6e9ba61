package models

import (
	"encoding/json"
	"testing"
)

func TestOrderedMapMarshalKeepsInsertionOrder(t *testing.T) {
	var m OrderedMap[float64]
	m.Set("monetary_base", 3)
	m.Set("tvl", 1)
	m.Set("fees", 2)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"monetary_base":3,"tvl":1,"fees":2}` {
		t.Fatalf("unexpected json: %s", data)
	}
}

func TestOrderedMapSetReplaces(t *testing.T) {
	var m OrderedMap[int]
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if len(m) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(m))
	}
	if v, ok := m.Get("a"); !ok || v != 3 {
		t.Fatalf("expected a=3, got %v %v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatalf("missing key reported present")
	}
}

func TestOrderedMapUnmarshalKeepsOrder(t *testing.T) {
	var m OrderedMap[[]float64]
	if err := json.Unmarshal([]byte(`{"z":[1,2],"a":[3],"m":[]}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := m.Keys()
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "a" || keys[2] != "m" {
		t.Fatalf("unexpected key order: %v", keys)
	}
	if v, _ := m.Get("z"); len(v) != 2 || v[1] != 2 {
		t.Fatalf("unexpected value for z: %v", v)
	}
}

func TestOrderedMapUnmarshalRejectsArray(t *testing.T) {
	var m OrderedMap[float64]
	if err := json.Unmarshal([]byte(`[1,2]`), &m); err == nil {
		t.Fatalf("expected error for array input")
	}
}

func TestCompositeSnapshotWireName(t *testing.T) {
	snap := CompositeSnapshot{Total: 6, Degraded: []string{}}
	snap.Components.Set("tvl", 6)

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"gdp":6,"components":{"tvl":6},"metadata":{},"degraded":[]}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}
