package cache

import (
	"encoding/json"
	"testing"

	"github.com/graphbind-io/graphbind/pkg/operation"
)

var userQuery = operation.MustParse(`query getUser($id: ID!) { user(id: $id) { name } }`)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestKeyIsCanonical(t *testing.T) {
	// Same variables, different construction order
	a := Key(userQuery, map[string]interface{}{"id": "1", "limit": 5})
	b := Key(userQuery, map[string]interface{}{"limit": 5, "id": "1"})
	if a != b {
		t.Errorf("expected identical keys, got %q vs %q", a, b)
	}

	c := Key(userQuery, map[string]interface{}{"id": "2"})
	if a == c {
		t.Error("different variables must produce different keys")
	}

	d := Key(userQuery, nil)
	if d != userQuery.Source() {
		t.Errorf("expected bare source key for nil variables, got %q", d)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newCache(t)

	key := Key(userQuery, map[string]interface{}{"id": "42"})
	payload := json.RawMessage(`{"user":{"name":"Ada"}}`)

	if c.Has(key) {
		t.Fatal("expected empty cache")
	}

	c.Set(key, payload)

	if !c.Has(key) {
		t.Fatal("expected entry after Set")
	}
	got, ok := c.Get(key)
	if !ok || string(got) != string(payload) {
		t.Errorf("expected %s, got %s (ok=%v)", payload, got, ok)
	}

	c.Delete(key)
	if c.Has(key) {
		t.Error("expected entry gone after Delete")
	}
}

func TestSnapshotRestore(t *testing.T) {
	src := newCache(t)

	keyA := Key(userQuery, map[string]interface{}{"id": "1"})
	keyB := Key(userQuery, map[string]interface{}{"id": "2"})
	src.Set(keyA, json.RawMessage(`{"user":{"name":"A"}}`))
	src.Set(keyB, json.RawMessage(`{"user":{"name":"B"}}`))

	serialized, err := src.MarshalSnapshot()
	if err != nil {
		t.Fatal(err)
	}

	dst := newCache(t)
	if err := dst.RestoreJSON(serialized); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{keyA, keyB} {
		if !dst.Has(key) {
			t.Errorf("expected restored cache to contain %q", key)
		}
	}

	got, _ := dst.Get(keyA)
	var decoded map[string]interface{}
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("restored payload is not JSON: %v", err)
	}
}

func TestRestoreJSONRejectsGarbage(t *testing.T) {
	c := newCache(t)
	if err := c.RestoreJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid snapshot")
	}
}

func TestClear(t *testing.T) {
	c := newCache(t)
	key := Key(userQuery, map[string]interface{}{"id": "1"})
	c.Set(key, json.RawMessage(`{}`))

	c.Clear()

	if c.Has(key) {
		t.Error("expected empty cache after Clear")
	}
	if len(c.Snapshot()) != 0 {
		t.Error("expected empty snapshot after Clear")
	}
}
