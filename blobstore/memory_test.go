package blobstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/eggybyte-technology/slotx"
)

func TestMemoryGetSet(t *testing.T) {
	store := NewMemory()

	if _, ok := store.Get("absent"); ok {
		t.Error("Get(absent) found a value")
	}

	store.Set("beam/config", []byte{0x01, 0x02})
	got, ok := store.Get("beam/config")
	if !ok {
		t.Fatal("Get() missed stored key")
	}
	if !bytes.Equal(got, []byte{0x01, 0x02}) {
		t.Errorf("Get() = %v, want [1 2]", got)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	store := NewMemory()

	in := []byte{0x01}
	store.Set("k", in)
	in[0] = 0xff

	out, _ := store.Get("k")
	if out[0] != 0x01 {
		t.Error("Set() retained caller's slice")
	}
	out[0] = 0xee
	again, _ := store.Get("k")
	if again[0] != 0x01 {
		t.Error("Get() leaked internal slice")
	}
}

func TestMemoryApply(t *testing.T) {
	store := NewMemory()
	batch := slotx.MapBatch{
		"a/config": []byte{0x0a},
		"b/config": []byte{0x0b},
	}
	if err := store.Apply(context.Background(), batch); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	for key, want := range batch {
		got, ok := store.Get(key)
		if !ok || !bytes.Equal(got, want) {
			t.Errorf("Get(%q) = %v, %v; want %v, true", key, got, ok, want)
		}
	}
}

func TestMemoryDelete(t *testing.T) {
	store := NewMemory()
	store.Set("k", []byte{0x01})
	store.Delete("k")
	if _, ok := store.Get("k"); ok {
		t.Error("Get() found deleted key")
	}
}
