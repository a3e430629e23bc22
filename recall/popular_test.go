package recall

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/store"
)

func popularSnapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	cfg := core.DefaultEngineConfig()
	now := time.Now().UTC()
	r := func(u, i int64, v float64) core.Rating {
		return core.Rating{UserID: u, ItemID: i, Value: v, ObservedAt: now}
	}
	m, _ := model.BuildMatrix([]core.Rating{
		r(1, 10, 5), r(2, 10, 5), r(3, 10, 4),
		r(1, 20, 4), r(2, 20, 4),
		r(1, 30, 2),
	}, cfg.Bounds)
	return &model.Snapshot{Matrix: m, Popularity: model.BuildPopularity(m), Config: cfg}
}

func TestPopular_SnapshotRanking(t *testing.T) {
	snap := popularSnapshot(t)
	r := &Popular{Snapshot: func() *model.Snapshot { return snap }, Cfg: snap.Config}

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 99})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{10, 20, 30}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		it := items[i]
		if it.ID != id {
			t.Fatalf("items[%d].ID = %d, want %d", i, it.ID, id)
		}
		if it.Score < 0 || it.Score > 1 {
			t.Errorf("item %d score %v outside [0,1]", it.ID, it.Score)
		}
		if !it.HasLabelValue("recall_source", "popular") {
			t.Errorf("item %d missing recall_source=popular", it.ID)
		}
		if _, ok := it.Meta["pop_score"]; !ok {
			t.Errorf("item %d missing pop_score meta", it.ID)
		}
	}
	// 最热物品归一后得满分
	if items[0].Score != 1.0 {
		t.Fatalf("top item score = %v, want 1.0", items[0].Score)
	}
}

func TestPopular_LimitTruncates(t *testing.T) {
	snap := popularSnapshot(t)
	r := &Popular{Snapshot: func() *model.Snapshot { return snap }, Cfg: snap.Config, Limit: 2}

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 99})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ID != 10 || items[1].ID != 20 {
		t.Fatalf("got %v, want top-2 prefix", items)
	}
}

func TestPopular_RecallWindowCoversExclusions(t *testing.T) {
	cfg := core.DefaultEngineConfig()
	now := time.Now().UTC()
	ratings := make([]core.Rating, 0, 130)
	for i := int64(1); i <= 130; i++ {
		ratings = append(ratings, core.Rating{UserID: 1, ItemID: i, Value: 4.0, ObservedAt: now})
	}
	m, _ := model.BuildMatrix(ratings, cfg.Bounds)
	snap := &model.Snapshot{Matrix: m, Popularity: model.BuildPopularity(m), Config: cfg}
	r := &Popular{Snapshot: func() *model.Snapshot { return snap }, Cfg: cfg}

	// 排除 60 个 + limit 50：召回窗口必须放大到默认 100 之上，
	// 否则排除项吃掉名额后凑不满一页
	exclude := make(map[int64]struct{}, 60)
	for i := int64(1); i <= 60; i++ {
		exclude[i] = struct{}{}
	}
	items, err := r.Recall(context.Background(), &core.RecommendContext{
		UserID:  99,
		Limit:   50,
		Exclude: exclude,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) < 110 {
		t.Fatalf("recalled %d items, want at least offset+limit+excluded = 110", len(items))
	}

	// 深分页同样要越过默认窗口
	items, err = r.Recall(context.Background(), &core.RecommendContext{
		UserID: 99,
		Limit:  40,
		Offset: 80,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) < 120 {
		t.Fatalf("recalled %d items, want at least offset+limit = 120", len(items))
	}
}

func TestPopular_StoreOverride(t *testing.T) {
	ctx := context.Background()
	snap := popularSnapshot(t)
	st := store.NewMemoryStore()
	defer st.Close()

	// 运营榜单把 30 顶到最前（分数高者靠前），并夹带一个快照不认识的物品
	for member, score := range map[string]float64{"30": 3, "999": 2, "10": 1} {
		if err := st.ZAdd(ctx, "pop:items", score, member); err != nil {
			t.Fatal(err)
		}
	}

	r := &Popular{
		Snapshot: func() *model.Snapshot { return snap },
		Cfg:      snap.Config,
		Store:    st,
		Key:      "pop:items",
	}
	items, err := r.Recall(ctx, &core.RecommendContext{UserID: 99})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{30, 10} // 999 没有快照统计，跳过
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("items[%d].ID = %d, want %d", i, items[i].ID, id)
		}
	}
}

func TestPopular_EmptyBoardFallsBackToSnapshot(t *testing.T) {
	snap := popularSnapshot(t)
	st := store.NewMemoryStore()
	defer st.Close()

	r := &Popular{
		Snapshot: func() *model.Snapshot { return snap },
		Cfg:      snap.Config,
		Store:    st,
		Key:      "pop:items",
	}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 99})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].ID != 10 {
		t.Fatalf("empty board must fall back to snapshot ranking, got %v", items)
	}
}
