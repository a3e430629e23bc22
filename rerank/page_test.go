package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/movierec/core"
)

func scored(pairs ...float64) []*core.Item {
	// pairs: id1, score1, id2, score2, ...
	out := make([]*core.Item, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		it := core.NewItem(int64(pairs[i]))
		it.Score = pairs[i+1]
		out = append(out, it)
	}
	return out
}

func TestSortNode_DescWithIDTieBreak(t *testing.T) {
	items := scored(5, 0.3, 2, 0.7, 9, 0.7, 1, 0.1)
	n := &SortNode{}
	out, err := n.Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{2, 9, 5, 1} // 0.7 并列时取更小 ID
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("out[%d].ID = %d, want %d", i, out[i].ID, id)
		}
	}
}

func TestPageNode_Windows(t *testing.T) {
	full := scored(1, 0.9, 2, 0.8, 3, 0.7, 4, 0.6, 5, 0.5)
	n := &PageNode{}

	cases := []struct {
		name   string
		limit  int
		offset int
		want   []int64
	}{
		{"first page", 2, 0, []int64{1, 2}},
		{"second page", 2, 2, []int64{3, 4}},
		{"last partial page", 2, 4, []int64{5}},
		{"offset beyond list", 2, 10, nil},
		{"offset at boundary", 2, 5, nil},
		{"no limit returns tail", 0, 1, []int64{2, 3, 4, 5}},
		{"negative offset treated as zero", 3, -1, []int64{1, 2, 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rctx := &core.RecommendContext{Limit: c.limit, Offset: c.offset}
			out, err := n.Process(context.Background(), rctx, full)
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != len(c.want) {
				t.Fatalf("got %d items, want %d", len(out), len(c.want))
			}
			for i, id := range c.want {
				if out[i].ID != id {
					t.Errorf("out[%d].ID = %d, want %d", i, out[i].ID, id)
				}
			}
		})
	}
}

// 连续翻页拼接后必须恰好还原完整列表：不重复、不跳漏。
func TestPageNode_PagesConcatenate(t *testing.T) {
	full := scored(1, 0.9, 2, 0.8, 3, 0.7, 4, 0.6, 5, 0.5, 6, 0.4, 7, 0.3)
	n := &PageNode{}

	var joined []int64
	for offset := 0; ; offset += 3 {
		rctx := &core.RecommendContext{Limit: 3, Offset: offset}
		page, err := n.Process(context.Background(), rctx, full)
		if err != nil {
			t.Fatal(err)
		}
		if len(page) == 0 {
			break
		}
		for _, it := range page {
			joined = append(joined, it.ID)
		}
	}
	if len(joined) != len(full) {
		t.Fatalf("joined %d items, want %d", len(joined), len(full))
	}
	for i, it := range full {
		if joined[i] != it.ID {
			t.Fatalf("joined[%d] = %d, want %d", i, joined[i], it.ID)
		}
	}
}

func TestTopNNode(t *testing.T) {
	items := scored(1, 0.9, 2, 0.8, 3, 0.7)
	cases := []struct {
		name string
		n    int
		want int
	}{
		{"truncates", 2, 2},
		{"zero keeps all", 0, 3},
		{"larger than list keeps all", 10, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			node := &TopNNode{N: c.n}
			out, err := node.Process(context.Background(), &core.RecommendContext{}, items)
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != c.want {
				t.Fatalf("got %d items, want %d", len(out), c.want)
			}
		})
	}
}
