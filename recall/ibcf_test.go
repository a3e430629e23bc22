package recall

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/model"
)

func testSnapshot(t *testing.T, ratings []core.Rating, sims model.SimTable) *model.Snapshot {
	t.Helper()
	cfg := core.DefaultEngineConfig()
	m, report := model.BuildMatrix(ratings, cfg.Bounds)
	if report.Dropped != 0 {
		t.Fatalf("fixture dropped %d ratings", report.Dropped)
	}
	return &model.Snapshot{Matrix: m, Sims: sims, Config: cfg}
}

func ibcfFixture(t *testing.T) *IBCF {
	t.Helper()
	now := time.Now().UTC()
	snap := testSnapshot(t,
		[]core.Rating{
			{UserID: 1, ItemID: 1, Value: 5.0, ObservedAt: now},
			{UserID: 1, ItemID: 2, Value: 3.0, ObservedAt: now},
		},
		model.SimTable{
			// 物品 2 出现在物品 1 的邻居里：已评分的邻居不应成为候选
			1: {{ItemID: 10, Sim: 0.8, Common: 3}, {ItemID: 11, Sim: 0.5, Common: 2}, {ItemID: 2, Sim: 0.3, Common: 2}},
			2: {{ItemID: 12, Sim: 0.9, Common: 4}, {ItemID: 10, Sim: 0.4, Common: 2}},
		},
	)
	return &IBCF{
		Snapshot: func() *model.Snapshot { return snap },
		Cfg:      core.DefaultEngineConfig(),
	}
}

func TestIBCF_PredictionAndOrder(t *testing.T) {
	r := ibcfFixture(t)
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}

	// pred(10) = (0.8*5 + 0.4*3) / (0.8+0.4)，pred(11) = 5，pred(12) = 3
	wantPred := map[int64]float64{
		10: (0.8*5.0 + 0.4*3.0) / (0.8 + 0.4),
		11: 5.0,
		12: 3.0,
	}
	if len(items) != len(wantPred) {
		t.Fatalf("got %d items, want %d", len(items), len(wantPred))
	}
	// Score 降序：11 (pred 5.0) > 10 (pred 4.33) > 12 (pred 3.0)
	wantOrder := []int64{11, 10, 12}
	for i, id := range wantOrder {
		it := items[i]
		if it.ID != id {
			t.Fatalf("items[%d].ID = %d, want %d", i, it.ID, id)
		}
		pred, ok := it.Meta["ibcf_pred"].(float64)
		if !ok {
			t.Fatalf("item %d missing ibcf_pred", id)
		}
		if math.Abs(pred-wantPred[id]) > 1e-12 {
			t.Errorf("item %d pred = %v, want %v", id, pred, wantPred[id])
		}
		want01 := r.Cfg.Bounds.Scale01(wantPred[id])
		if math.Abs(it.Score-want01) > 1e-12 {
			t.Errorf("item %d score = %v, want %v", id, it.Score, want01)
		}
		if it.Score < 0 || it.Score > 1 {
			t.Errorf("item %d score %v outside [0,1]", id, it.Score)
		}
		if !it.HasLabelValue("recall_source", "ibcf") {
			t.Errorf("item %d missing recall_source=ibcf label", id)
		}
	}
}

func TestIBCF_SkipsRatedAndExcluded(t *testing.T) {
	r := ibcfFixture(t)
	rctx := &core.RecommendContext{
		UserID:  1,
		Exclude: map[int64]struct{}{10: {}},
	}
	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.ID == 10 {
			t.Fatal("excluded item 10 must not be recommended")
		}
		if it.ID == 1 || it.ID == 2 {
			t.Fatalf("already rated item %d must not be recommended", it.ID)
		}
	}
}

func TestIBCF_BestSeedTracking(t *testing.T) {
	r := ibcfFixture(t)
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	var got *core.Item
	for _, it := range items {
		if it.ID == 10 {
			got = it
		}
	}
	if got == nil {
		t.Fatal("item 10 not recalled")
	}
	// 物品 10 的两条来源按贡献比：0.8*5=4.0 > 0.4*3=1.2
	if id, _ := got.Meta["best_seed_id"].(int64); id != 1 {
		t.Errorf("best_seed_id = %v, want 1", got.Meta["best_seed_id"])
	}
	if sim, _ := got.Meta["best_seed_sim"].(float64); sim != 0.8 {
		t.Errorf("best_seed_sim = %v, want 0.8", got.Meta["best_seed_sim"])
	}
	wantShare := (0.8 * 5.0) / (0.8*5.0 + 0.4*3.0)
	if share, _ := got.Meta["best_seed_share"].(float64); math.Abs(share-wantShare) > 1e-12 {
		t.Errorf("best_seed_share = %v, want %v", got.Meta["best_seed_share"], wantShare)
	}
	if n, _ := got.Meta["neighbor_count"].(int64); n != 2 {
		t.Errorf("neighbor_count = %v, want 2", got.Meta["neighbor_count"])
	}
}

func TestIBCF_BestSeedByContribution(t *testing.T) {
	now := time.Now().UTC()
	// 种子 1 相似度更高但评分低，种子 2 相似度低但评分高：
	// 贡献 sim*rating 决定归因，0.5*5.0=2.5 > 0.9*1.0=0.9
	snap := testSnapshot(t,
		[]core.Rating{
			{UserID: 1, ItemID: 1, Value: 1.0, ObservedAt: now},
			{UserID: 1, ItemID: 2, Value: 5.0, ObservedAt: now},
		},
		model.SimTable{
			1: {{ItemID: 20, Sim: 0.9, Common: 2}},
			2: {{ItemID: 20, Sim: 0.5, Common: 2}},
		},
	)
	r := &IBCF{Snapshot: func() *model.Snapshot { return snap }, Cfg: core.DefaultEngineConfig()}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != 20 {
		t.Fatalf("items = %v, want single candidate 20", items)
	}
	got := items[0]
	if id, _ := got.Meta["best_seed_id"].(int64); id != 2 {
		t.Errorf("best_seed_id = %v, want 2 (highest contribution, not highest sim)", got.Meta["best_seed_id"])
	}
	if sim, _ := got.Meta["best_seed_sim"].(float64); sim != 0.5 {
		t.Errorf("best_seed_sim = %v, want 0.5", got.Meta["best_seed_sim"])
	}
	wantShare := 2.5 / (2.5 + 0.9)
	if share, _ := got.Meta["best_seed_share"].(float64); math.Abs(share-wantShare) > 1e-12 {
		t.Errorf("best_seed_share = %v, want %v", got.Meta["best_seed_share"], wantShare)
	}
}

func TestIBCF_SeedsAsPseudoHistory(t *testing.T) {
	r := ibcfFixture(t)
	// 用户 99 没有任何历史，只靠种子物品 1 驱动召回
	rctx := &core.RecommendContext{UserID: 99, SeedItemIDs: []int64{1}}
	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	wantPred := r.Cfg.SeedRating // 单一种子时 pred = sim*r/sim = 伪评分
	ids := make(map[int64]bool, len(items))
	for _, it := range items {
		ids[it.ID] = true
		if it.ID == 1 {
			t.Fatal("seed item itself must not be recommended")
		}
		pred, _ := it.Meta["ibcf_pred"].(float64)
		if math.Abs(pred-wantPred) > 1e-12 {
			t.Errorf("item %d pred = %v, want %v", it.ID, pred, wantPred)
		}
	}
	// 种子 1 的邻居：10、11、2 都可推荐（用户 99 没评过分）
	for _, id := range []int64{2, 10, 11} {
		if !ids[id] {
			t.Errorf("expected neighbor %d in seed-driven recall", id)
		}
	}
}

func TestIBCF_ExcludedSeedNotInjected(t *testing.T) {
	r := ibcfFixture(t)
	rctx := &core.RecommendContext{
		UserID:      99,
		SeedItemIDs: []int64{1},
		Exclude:     map[int64]struct{}{1: {}},
	}
	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("excluded seed must not drive recall, got %d items", len(items))
	}
}

func TestIBCF_ZeroDenominatorExcluded(t *testing.T) {
	now := time.Now().UTC()
	snap := testSnapshot(t,
		[]core.Rating{{UserID: 1, ItemID: 1, Value: 4.0, ObservedAt: now}},
		model.SimTable{1: {{ItemID: 20, Sim: 0, Common: 2}}},
	)
	r := &IBCF{Snapshot: func() *model.Snapshot { return snap }, Cfg: core.DefaultEngineConfig()}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("zero-denominator candidate must be dropped, got %d items", len(items))
	}
}

func TestIBCF_NoSnapshot(t *testing.T) {
	r := &IBCF{Snapshot: func() *model.Snapshot { return nil }, Cfg: core.DefaultEngineConfig()}
	_, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if !core.IsModelNotReady(err) {
		t.Fatalf("err = %v, want MODEL_NOT_READY", err)
	}
}

func TestIBCF_EmptyHistoryNoSeeds(t *testing.T) {
	r := ibcfFixture(t)
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 42})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("no history and no seeds must yield nothing, got %d items", len(items))
	}
}
