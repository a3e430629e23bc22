package rerank

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// PageNode 对排好序的完整候选列表做 offset/limit 窗口切片。
// 分页必须发生在排序与排除之后：同一用户同一数据版本下，
// 翻页只是同一个列表的不同窗口，不会出现重复或跳漏。
type PageNode struct{}

func (n *PageNode) Name() string {
	return "rerank.page"
}

func (n *PageNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *PageNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	offset := rctx.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil, nil
	}
	end := len(items)
	if rctx.Limit > 0 && offset+rctx.Limit < end {
		end = offset + rctx.Limit
	}
	return items[offset:end], nil
}
