package catalog

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCatalogLookups(t *testing.T) {
	c := Default()

	if c.Unit("centro") == nil {
		t.Fatal("expected centro unit")
	}
	if c.Unit(" CENTRO ") == nil {
		t.Error("unit lookup should normalize slug")
	}
	if c.Unit("nowhere") != nil {
		t.Error("unexpected unit")
	}

	if c.Service("eval") == nil {
		t.Fatal("expected eval service")
	}
	if c.Service("nope") != nil {
		t.Error("unexpected service")
	}

	if !c.DoctorAtUnit("centro", "dra-ana-castro") {
		t.Error("expected doctor at centro")
	}
	if c.DoctorAtUnit("centro", "dra-beatriz-souza") {
		t.Error("doctor attends jardins only")
	}

	if got := c.ServiceName("cleaning"); got != "Limpeza" {
		t.Errorf("ServiceName = %q", got)
	}
	if got := c.ServiceName("unknown-id"); got != "unknown-id" {
		t.Errorf("ServiceName fallback = %q", got)
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStatic(nil)
	c, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Units) == 0 {
		t.Fatal("expected default catalog")
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client)
}

func TestStoreGetDefaultsWhenUnset(t *testing.T) {
	store := newTestStore(t)

	c, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Unit("centro") == nil {
		t.Error("expected default catalog when nothing published")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	published := &Catalog{
		Units: []Unit{
			{Slug: "norte", Name: "Unidade Norte", Doctors: []Doctor{{Slug: "dr-x", Name: "Dr. X"}}},
		},
		Services: []Service{{ID: "implant", Name: "Implante", DefaultDurationMinutes: 90}},
	}

	if err := store.Set(ctx, published); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Unit("norte") == nil {
		t.Error("expected published unit")
	}
	if got.Unit("centro") != nil {
		t.Error("published catalog should replace the default")
	}
	if got.ServiceName("implant") != "Implante" {
		t.Error("expected published service")
	}
}
