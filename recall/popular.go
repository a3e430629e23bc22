package recall

import (
	"context"
	"strconv"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// Popular 是热门召回源：冷启动与候选不足时的兜底来源。
//   - 默认读取快照中的热门度表（score = mean * log1p(count)，预排序）
//   - 如果配置了 Store + Key，优先用 ZRange 读取运营侧维护的榜单
//     （有序集合，member=item_id），分数仍从快照热门度表解析
//
// Popular 同时实现 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popular struct {
	Snapshot func() *model.Snapshot
	Cfg      core.EngineConfig

	Store core.Store // 可选：运营榜单覆盖
	Key   string     // 例如 "pop:items"
	Limit int        // 召回条数上限，0 表示默认 100
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Popular) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	snap := r.Snapshot()
	if snap == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeModelNotReady,
			"recall: no trained snapshot")
	}

	// 召回窗口必须给后续过滤留出余量：排除项、已评分项、种子都会吃掉名额，
	// 在召回阶段截断等于把截断提到了排除之前
	limit := r.Limit
	if limit <= 0 {
		limit = 100
		if rctx != nil {
			need := rctx.Offset + rctx.Limit + len(rctx.Exclude) + len(rctx.SeedItemIDs)
			need += snap.UserRatingCount(rctx.UserID)
			if need > limit {
				limit = need
			}
		}
	}

	pop := snap.Popularity
	now := time.Now().UTC()

	// 运营榜单覆盖：从有序集合取 TopN，顺序以榜单为准
	if r.Store != nil && r.Key != "" {
		if kv, ok := r.Store.(core.KeyValueStore); ok {
			members, err := kv.ZRange(ctx, r.Key, 0, int64(limit)-1)
			if err == nil && len(members) > 0 {
				out := make([]*core.Item, 0, len(members))
				for _, m := range members {
					id, err := strconv.ParseInt(m, 10, 64)
					if err != nil {
						continue
					}
					rec, known := pop.Records[id]
					if !known {
						continue // 榜单里快照不认识的物品没有统计，跳过
					}
					out = append(out, r.item(rec, pop, now))
				}
				if len(out) > 0 {
					return out, nil
				}
			}
		}
	}

	out := make([]*core.Item, 0, limit)
	for _, rec := range pop.Ranked {
		if len(out) >= limit {
			break
		}
		out = append(out, r.item(rec, pop, now))
	}
	return out, nil
}

func (r *Popular) item(rec model.PopRecord, pop *model.PopTable, now time.Time) *core.Item {
	it := core.NewItem(rec.ItemID)
	it.Score = pop.Normalized(rec.Score)
	it.Meta["pop_score"] = it.Score // 分带回填会改写 Score，解释用这份原始热门分
	it.Meta["rating_count"] = int64(rec.Count)
	it.Meta["mean_rating"] = rec.Mean
	if !rec.LastRatedAt.IsZero() {
		it.Meta["last_rated_at"] = rec.LastRatedAt.Unix()
	}
	it.Meta["trending"] = rec.Trending(now, r.Cfg.TrendingWindow)
	it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
	return it
}
