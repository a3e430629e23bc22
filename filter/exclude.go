package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// ExcludeFilter 按请求级排除集合过滤（调用方显式不想看到的物品）。
// 排除集合在编排层已去重归一，这里只做 O(1) 查表。
type ExcludeFilter struct{}

func (f *ExcludeFilter) Name() string {
	return "filter.exclude"
}

func (f *ExcludeFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return rctx.Excluded(item.ID), nil
}
