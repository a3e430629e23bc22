package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/model"
)

// SeenFilter 过滤用户已经评过分的物品，种子物品同样视为已看过。
// IBCF 召回自身会跳过历史，这里再兜一层：热门兜底等来源不感知用户历史。
type SeenFilter struct {
	Snapshot func() *model.Snapshot
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	for _, seed := range rctx.SeedItemIDs {
		if item.ID == seed {
			return true, nil
		}
	}
	snap := f.Snapshot()
	if snap == nil {
		return false, nil
	}
	history := snap.Matrix.Users[rctx.UserID]
	if history == nil {
		return false, nil
	}
	_, rated := history[item.ID]
	return rated, nil
}
