package recall

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/utils"
)

// staticSource 返回固定候选，可注入延迟和错误。
type staticSource struct {
	name  string
	items []int64
	delay time.Duration
	err   error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, 0, len(s.items))
	for _, id := range s.items {
		it := core.NewItem(id)
		it.PutLabel("recall_source", utils.Label{Value: s.name, Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

func TestFanout_MergeFollowsSourceOrder(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			// 第一个来源更慢：合并顺序必须仍按 Sources 顺序，与完成顺序无关
			&staticSource{name: "a", items: []int64{1, 2}, delay: 20 * time.Millisecond},
			&staticSource{name: "b", items: []int64{3, 4}},
		},
		Dedup:         true,
		MergeStrategy: "priority",
	}

	for run := 0; run < 5; run++ {
		out, err := n.Process(context.Background(), &core.RecommendContext{UserID: 1}, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := []int64{1, 2, 3, 4}
		if len(out) != len(want) {
			t.Fatalf("run %d: got %d items, want %d", run, len(out), len(want))
		}
		for i, id := range want {
			if out[i].ID != id {
				t.Fatalf("run %d: out[%d].ID = %d, want %d", run, i, out[i].ID, id)
			}
		}
	}
}

func TestFanout_DedupKeepsHigherPriorityAndMergesLabels(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&staticSource{name: "a", items: []int64{1, 2}},
			&staticSource{name: "b", items: []int64{2, 3}},
		},
		Dedup:         true,
		MergeStrategy: "priority",
	}
	out, err := n.Process(context.Background(), &core.RecommendContext{UserID: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d items, want 3", len(out))
	}
	var dup *core.Item
	for _, it := range out {
		if it.ID == 2 {
			dup = it
		}
	}
	if dup == nil {
		t.Fatal("item 2 missing")
	}
	if prio, _ := dup.MetaInt64("recall_priority"); prio != 0 {
		t.Fatalf("item 2 priority = %d, want 0 (first source wins)", prio)
	}
	// 两个来源的标签都保留，解释侧能看到全部召回来源
	if !dup.HasLabelValue("recall_source", "a") || !dup.HasLabelValue("recall_source", "b") {
		t.Fatalf("item 2 labels = %+v, want both sources", dup.Labels)
	}
}

func TestFanout_FailedSourceDoesNotAbort(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&staticSource{name: "a", err: core.NewDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "down")},
			&staticSource{name: "b", items: []int64{3}},
		},
		Dedup: true,
	}
	out, err := n.Process(context.Background(), &core.RecommendContext{UserID: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != 3 {
		t.Fatalf("got %v, want only the healthy source's items", out)
	}
}

func TestFanout_SlowSourceTimesOutAlone(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&staticSource{name: "slow", items: []int64{1}, delay: time.Second},
			&staticSource{name: "fast", items: []int64{2}},
		},
		Dedup:   true,
		Timeout: 20 * time.Millisecond,
	}
	start := time.Now()
	out, err := n.Process(context.Background(), &core.RecommendContext{UserID: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("per-source timeout not enforced")
	}
	if len(out) != 1 || out[0].ID != 2 {
		t.Fatalf("got %v, want only the fast source's items", out)
	}
}

func TestFanout_NoSources(t *testing.T) {
	n := &Fanout{}
	out, err := n.Process(context.Background(), &core.RecommendContext{UserID: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Fatalf("got %v, want nil", out)
	}
}
