package recall

import (
	"context"
	"sort"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// IBCF 是物品协同过滤召回源：用用户历史评分加权聚合相似物品。
//
// 预测公式：pred(u, c) = Σ sim(s, c) * r(u, s) / Σ sim(s, c)，
// s 遍历用户历史（含种子伪评分），c 是未看过的候选。
// 相似度表只保留正相似，分母为 0 的候选直接排除（没有信号不给分）。
// 最终 Score 按配置的评分范围线性缩放到 [0,1]。
//
// IBCF 同时实现 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type IBCF struct {
	// Snapshot 返回当前可服务的模型快照（由 Holder.Load 提供）
	Snapshot func() *model.Snapshot
	Cfg      core.EngineConfig
}

func (r *IBCF) Name() string        { return "recall.ibcf" }
func (r *IBCF) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *IBCF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// cand 是单个候选的打分累加器。
type cand struct {
	num float64 // Σ sim * rating
	den float64 // Σ sim
	n   int     // 贡献的历史物品数

	bestSeedID      int64   // 贡献最大的历史物品（解释用）
	bestSeedSim     float64 // 该物品与候选的相似度
	bestSeedContrib float64 // 该物品的贡献量 sim * rating
}

// Recall 实现 Source 接口。
func (r *IBCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	snap := r.Snapshot()
	if snap == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeModelNotReady,
			"recall: no trained snapshot")
	}

	// 历史 = 真实评分 + 种子伪评分（种子不覆盖真实评分，排除项不注入）
	history := snap.UserHistory(rctx.UserID)
	if history == nil {
		history = make(map[int64]float64)
	}
	for _, seed := range rctx.SeedItemIDs {
		if _, rated := history[seed]; rated {
			continue
		}
		if rctx.Excluded(seed) {
			continue
		}
		history[seed] = r.Cfg.SeedRating
	}
	if len(history) == 0 {
		return nil, nil
	}

	// 历史按物品 ID 升序遍历，保证浮点累加顺序固定、结果可复现
	seeds := make([]int64, 0, len(history))
	for id := range history {
		seeds = append(seeds, id)
	}
	sort.Slice(seeds, func(a, b int) bool { return seeds[a] < seeds[b] })

	cands := make(map[int64]*cand)
	for _, seedID := range seeds {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rating := history[seedID]
		for _, nb := range snap.Neighbors(seedID) {
			if _, rated := history[nb.ItemID]; rated {
				continue // 已看过的不再推荐
			}
			if rctx.Excluded(nb.ItemID) {
				continue
			}
			c, ok := cands[nb.ItemID]
			if !ok {
				c = &cand{}
				cands[nb.ItemID] = c
			}
			contrib := nb.Sim * rating
			c.num += contrib
			c.den += nb.Sim
			c.n++
			if contrib > c.bestSeedContrib || (contrib == c.bestSeedContrib && (c.bestSeedID == 0 || seedID < c.bestSeedID)) {
				c.bestSeedContrib = contrib
				c.bestSeedSim = nb.Sim
				c.bestSeedID = seedID
			}
		}
	}

	out := make([]*core.Item, 0, len(cands))
	for itemID, c := range cands {
		if c.den <= 0 {
			continue
		}
		pred := c.num / c.den
		it := core.NewItem(itemID)
		it.Score = r.Cfg.Bounds.Scale01(pred)
		it.Meta["ibcf_pred"] = pred
		it.Meta["best_seed_id"] = c.bestSeedID
		it.Meta["best_seed_sim"] = c.bestSeedSim
		if c.num > 0 {
			it.Meta["best_seed_share"] = c.bestSeedContrib / c.num
		}
		it.Meta["neighbor_count"] = int64(c.n)
		it.PutLabel("recall_source", utils.Label{Value: "ibcf", Source: "recall"})
		out = append(out, it)
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}
