// Package explain 为每个推荐结果生成结构化解释。
//
// 因子按固定优先级顺序构建：genre_match → because_you_rated →
// friend_activity → trending/popular。primary_reason 取权重最大的因子，
// 权重并列时取顺序靠前者，保证同一输入产出同一解释。
package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/meta"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/pipeline"
)

// ExplainNode 是解释生成节点，挂在 Pipeline 末端（分页之前或之后均可，
// 默认在分页之前，保证截断不影响解释内容本身）。
type ExplainNode struct {
	Meta     meta.Service
	Snapshot func() *model.Snapshot
	Cfg      core.EngineConfig
}

func (n *ExplainNode) Name() string {
	return "explain.node"
}

func (n *ExplainNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *ExplainNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	affinity := n.userAffinity(rctx)

	for _, it := range items {
		if it == nil {
			continue
		}
		it.Explanation = n.explain(rctx, it, affinity)
	}
	return items, nil
}

// userAffinity 取用户类型偏好：优先用编排层构建好的画像，否则现算。
func (n *ExplainNode) userAffinity(rctx *core.RecommendContext) map[string]float64 {
	if rctx.User != nil && len(rctx.User.GenreAffinity) > 0 {
		return rctx.User.GenreAffinity
	}
	if n.Meta == nil || n.Snapshot == nil {
		return nil
	}
	snap := n.Snapshot()
	if snap == nil {
		return nil
	}
	return meta.Affinity(snap.UserHistory(rctx.UserID), n.Cfg.PositiveRating, n.Meta.Genres)
}

func (n *ExplainNode) explain(rctx *core.RecommendContext, it *core.Item, affinity map[string]float64) *core.Explanation {
	exp := &core.Explanation{}

	// 纯热门兜底的候选只解释为 popular/trending：权重固定 1.0，唯一因子
	if it.HasLabelValue("recall_source", "popular") && !it.HasLabelValue("recall_source", "ibcf") {
		exp.Factors = append(exp.Factors, n.popularityFactor(it))
		exp.Finalize()
		exp.Text = n.text(exp)
		return exp
	}

	// 1. 类型重合
	if n.Meta != nil && len(affinity) > 0 {
		if hit, weight := meta.Overlap(n.Meta.Genres(it.ID), affinity); len(hit) > 0 {
			exp.Factors = append(exp.Factors, core.Factor{
				Type:        core.ReasonGenreMatch,
				Weight:      weight,
				Value:       weight,
				Payload:     core.GenreMatchPayload{Genres: hit},
				Description: "Matches your favorite genres: " + strings.Join(hit, ", "),
			})
		}
	}

	// 2. IBCF 贡献：贡献最大的种子物品，权重 = 该种子占总贡献的比例
	if seedID, ok := it.MetaInt64("best_seed_id"); ok && seedID > 0 {
		share, _ := it.MetaFloat("best_seed_share")
		payload := core.BecauseYouRatedPayload{SeedItemID: seedID}
		desc := fmt.Sprintf("Because you rated item %d", seedID)
		if n.Meta != nil {
			if title, ok := n.Meta.Title(seedID); ok && title != "" {
				payload.SeedTitle = title
				desc = "Because you rated " + title
			}
		}
		exp.Factors = append(exp.Factors, core.Factor{
			Type:        core.ReasonBecauseYouRated,
			Weight:      share,
			Value:       share,
			Payload:     payload,
			Description: desc,
		})
	}

	// 3. 好友信号：混合实际生效时才产出因子
	if it.HasLabelValue("social", "applied") {
		count, _ := it.MetaInt64("social_friend_count")
		mean, _ := it.MetaFloat("social_mean")
		weight := n.Cfg.SocialWeight * n.Cfg.Bounds.Scale01(mean)
		exp.Factors = append(exp.Factors, core.Factor{
			Type:   core.ReasonFriendActivity,
			Weight: weight,
			Value:  mean,
			Payload: core.FriendActivityPayload{
				FriendCount:   int(count),
				MeanRating:    mean,
				WeightApplied: n.Cfg.SocialWeight,
			},
			Description: fmt.Sprintf("Rated %.1f on average by %d of your friends", mean, count),
		})
	}

	if len(exp.Factors) == 0 {
		// 没有任何信号时给出兜底解释，解释永不为空
		exp.Factors = append(exp.Factors, core.Factor{
			Type:        core.ReasonPopular,
			Weight:      it.Score,
			Value:       it.Score,
			Payload:     core.PopularityPayload{},
			Description: "Recommended for you",
		})
	}

	exp.Finalize()
	exp.Text = n.text(exp)
	return exp
}

// popularityFactor 构建热门/趋势因子。来自兜底链路的候选它是唯一因子。
func (n *ExplainNode) popularityFactor(it *core.Item) core.Factor {
	count, _ := it.MetaInt64("rating_count")
	mean, _ := it.MetaFloat("mean_rating")
	pop, _ := it.MetaFloat("pop_score")
	reason := core.ReasonPopular
	desc := "Popular on the platform"
	if trending, ok := it.Meta["trending"].(bool); ok && trending {
		reason = core.ReasonTrending
		desc = "Trending now"
	}
	return core.Factor{
		Type:   reason,
		Weight: 1.0,
		Value:  pop,
		Payload: core.PopularityPayload{
			RatingCount: int(count),
			MeanRating:  mean,
		},
		Description: desc,
	}
}

// text 生成可读文案：主因子文案打头，最多再补一个次要因子。
func (n *ExplainNode) text(exp *core.Explanation) string {
	var primary, secondary string
	for _, f := range exp.Factors {
		if f.Type == exp.PrimaryReason && primary == "" {
			primary = f.Description
			continue
		}
		if secondary == "" {
			secondary = f.Description
		}
	}
	if primary == "" {
		primary = "Recommended for you"
	}
	if secondary == "" {
		return primary
	}
	return primary + ". " + secondary
}
