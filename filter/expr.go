package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/dsl"
)

// ExprFilter 是表达式过滤器：用 CEL 规则描述剔除条件，配置驱动、免发版。
//
// Expr 为真的物品被过滤掉，例如：
//   - `item.score < 0.05`                          剔除得分过低的候选
//   - `label.recall_source == "popular"`           剔除纯兜底候选
//   - `item.meta.rating_count < 3.0`               剔除评分样本过少的物品
type ExprFilter struct {
	Expr string
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Expr == "" {
		return false, nil
	}
	eval := dsl.NewEval(item, rctx)
	return eval.Evaluate(f.Expr)
}
