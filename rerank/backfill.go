package rerank

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// BackfillNode 处理个性化候选不足时的热门回填分带。
//
// 混合列表里同时存在个性化候选（recall_source 含 ibcf）和纯兜底候选
// （只有 popular）时，把兜底候选的分数线性压到 (0, 个性化最低分) 区间：
// 兜底永远排在个性化之后，但兜底内部仍按热门度有序。
//
// 列表里没有个性化候选时（冷启动路径）不做处理，热门分原样参与排序。
type BackfillNode struct{}

func (n *BackfillNode) Name() string {
	return "rerank.backfill"
}

func (n *BackfillNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *BackfillNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	// 个性化最低分作为兜底分带的上界
	minPersonalized := -1.0
	hasFallback := false
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.HasLabelValue("recall_source", "ibcf") {
			if minPersonalized < 0 || it.Score < minPersonalized {
				minPersonalized = it.Score
			}
		} else if it.HasLabelValue("recall_source", "popular") {
			hasFallback = true
		}
	}
	if minPersonalized < 0 || !hasFallback {
		return items, nil
	}

	for _, it := range items {
		if it == nil || it.HasLabelValue("recall_source", "ibcf") {
			continue
		}
		if !it.HasLabelValue("recall_source", "popular") {
			continue
		}
		it.Score = it.Score * minPersonalized
		it.PutLabel("fallback", utils.Label{Value: "true", Source: n.Name()})
	}
	return items, nil
}
