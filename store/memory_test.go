package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/rushteam/movierec/core"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	defer m.Close()

	if _, err := m.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Fatalf("err = %v, want store not found", err)
	}
	if err := m.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("got %q, want %q", got, "v")
	}
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Fatalf("err after delete = %v, want store not found", err)
	}
}

func TestMemoryStore_ZRangeOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	defer m.Close()

	// 同分成员按 member 升序，保证榜单读取稳定
	for member, score := range map[string]float64{"b": 2, "c": 1, "a": 2, "d": 3} {
		if err := m.ZAdd(ctx, "board", score, member); err != nil {
			t.Fatal(err)
		}
	}
	got, err := m.ZRange(ctx, "board", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"d", "a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	top, err := m.ZRange(ctx, "board", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0] != "d" || top[1] != "a" {
		t.Fatalf("top-2 = %v, want [d a]", top)
	}

	empty, err := m.ZRange(ctx, "nothing", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if empty != nil {
		t.Fatalf("missing zset = %v, want nil", empty)
	}
}

func TestMemoryStore_Hash(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	defer m.Close()

	if err := m.HSet(ctx, "h", "f1", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := m.HSet(ctx, "h", "f2", []byte("2")); err != nil {
		t.Fatal(err)
	}

	v, err := m.HGet(ctx, "h", "f1")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "1" {
		t.Fatalf("HGet = %q, want 1", v)
	}

	all, err := m.HGetAll(ctx, "h")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || string(all["f1"]) != "1" || string(all["f2"]) != "2" {
		t.Fatalf("HGetAll = %v", all)
	}

	if _, err := m.HGet(ctx, "h", "nope"); !core.IsStoreNotFound(err) {
		t.Fatalf("err = %v, want store not found", err)
	}
}

func TestMemoryRatingStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRatingStore()

	s.Append(core.Rating{UserID: 2, ItemID: 1, Value: 4})
	s.Append(core.Rating{UserID: 1, ItemID: 2, Value: 5})
	s.Append(core.Rating{UserID: 1, ItemID: 1, Value: 3})

	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// 固定排序：user_id 升序，再 item_id 升序
	want := []struct{ u, i int64 }{{1, 1}, {1, 2}, {2, 1}}
	if len(all) != len(want) {
		t.Fatalf("got %d ratings, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].UserID != w.u || all[i].ItemID != w.i {
			t.Fatalf("all[%d] = %+v, want user %d item %d", i, all[i], w.u, w.i)
		}
	}
}
