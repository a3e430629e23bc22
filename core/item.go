package core

import "github.com/rushteam/movierec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、元信息、标签、解释。
// Labels 用于解释与策略驱动；Score 用于排序决策，最终始终落在 [0,1]。
type Item struct {
	ID          int64
	Score       float64
	Meta        map[string]any
	Labels      map[string]utils.Label
	Explanation *Explanation
}

func NewItem(id int64) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// HasLabelValue 判断某个 Label 是否包含指定值（Merge 后以 '|' 累积）。
func (it *Item) HasLabelValue(key, value string) bool {
	lbl, ok := it.Labels[key]
	if !ok {
		return false
	}
	if lbl.Value == value {
		return true
	}
	rest := lbl.Value
	for len(rest) > 0 {
		idx := -1
		for i := 0; i < len(rest); i++ {
			if rest[i] == '|' {
				idx = i
				break
			}
		}
		if idx < 0 {
			return rest == value
		}
		if rest[:idx] == value {
			return true
		}
		rest = rest[idx+1:]
	}
	return false
}

// MetaFloat 读取 Meta 中的数值字段，缺失时返回 (0, false)。
func (it *Item) MetaFloat(key string) (float64, bool) {
	if it.Meta == nil {
		return 0, false
	}
	switch v := it.Meta[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// MetaInt64 读取 Meta 中的 int64 字段，缺失时返回 (0, false)。
func (it *Item) MetaInt64(key string) (int64, bool) {
	if it.Meta == nil {
		return 0, false
	}
	switch v := it.Meta[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
