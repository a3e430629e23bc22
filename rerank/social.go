package rerank

import (
	"context"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
	"github.com/rushteam/movierec/social"
)

// SocialBoostNode 把好友评分信号混入候选分数。
//
// 混合公式：final = (1-w)*score + w*social，w 是配置的社交权重，
// social 是好友评分均值缩放到 [0,1] 后的值。没有好友信号的物品分数不变。
//
// 降级语义：请求未开启社交、没有好友动态源、或拉取超时/失败时，
// 候选原样透传，绝不因为社交信号失败而让请求失败。
type SocialBoostNode struct {
	Feed    core.FriendFeed
	Cfg     core.EngineConfig
	Timeout time.Duration // 0 时取 Cfg.SocialTimeout
}

func (n *SocialBoostNode) Name() string {
	return "rerank.social"
}

func (n *SocialBoostNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *SocialBoostNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if !rctx.UseSocial || n.Feed == nil || len(items) == 0 {
		return items, nil
	}

	timeout := n.Timeout
	if timeout <= 0 {
		timeout = n.Cfg.SocialTimeout
	}
	feedCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		feedCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ratings, err := n.Feed.FriendRatings(feedCtx, rctx.UserID)
	if err != nil {
		// 超时/失败降级：打标后原样透传
		rctx.PutLabel("social", utils.Label{Value: "degraded", Source: n.Name()})
		return items, nil
	}
	if len(ratings) == 0 {
		return items, nil
	}

	signals := social.Aggregate(ratings, n.Cfg.PositiveRating)
	w := n.Cfg.SocialWeight

	for _, it := range items {
		sig, ok := signals[it.ID]
		if !ok {
			continue
		}
		socialScore := n.Cfg.Bounds.Scale01(sig.Mean)
		it.Score = (1-w)*it.Score + w*socialScore
		it.Meta["social_friend_count"] = int64(sig.Count)
		it.Meta["social_positive_count"] = int64(sig.Positive)
		it.Meta["social_mean"] = sig.Mean
		it.Meta["social_weight"] = w
		it.PutLabel("social", utils.Label{Value: "applied", Source: n.Name()})
	}
	return items, nil
}
