package meta

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/rushteam/movierec/core"
)

// itemsKey 是 Store 中全量元数据表的 key（JSON 数组编码）。
const itemsKey = "meta:items"

// StoreLoader 从 Store 加载元数据表（全量 JSON）。
type StoreLoader struct {
	Store core.Store
}

func (l *StoreLoader) Name() string { return "meta.store" }

func (l *StoreLoader) Load(ctx context.Context, _ []int64) (map[int64]ItemMeta, error) {
	data, err := l.Store.Get(ctx, itemsKey)
	if err != nil {
		return nil, err
	}
	var items []ItemMeta
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, core.NewDomainError(core.ModuleMeta, core.ErrorCodeDataIntegrity,
			"meta: malformed items payload: "+err.Error())
	}
	out := make(map[int64]ItemMeta, len(items))
	for _, m := range items {
		m.Genres = NormalizeGenres(m.Genres)
		out[m.ID] = m
	}
	return out, nil
}

// ChainLoader 依次尝试多个 Loader，第一个成功且非空者生效。
// 典型组合：Feast 在线特征优先，Store 表兜底。
type ChainLoader struct {
	Loaders []Loader
	Logger  *slog.Logger
}

func (l *ChainLoader) Name() string { return "meta.chain" }

func (l *ChainLoader) Load(ctx context.Context, ids []int64) (map[int64]ItemMeta, error) {
	var lastErr error
	for _, loader := range l.Loaders {
		items, err := loader.Load(ctx, ids)
		if err != nil {
			lastErr = err
			if l.Logger != nil {
				l.Logger.Warn("meta: loader failed, trying next",
					"loader", loader.Name(), "error", err)
			}
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, core.NewDomainError(core.ModuleMeta, core.ErrorCodeNotFound, "meta: no loader produced items")
}

// LoadService 用 Loader 构建 MemoryService。
func LoadService(ctx context.Context, loader Loader, ids []int64) (*MemoryService, error) {
	items, err := loader.Load(ctx, ids)
	if err != nil {
		return nil, err
	}
	return NewMemoryService(items), nil
}

// NormalizeGenres 统一类型写法：小写、去空白、去空项。
func NormalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || g == "(no genres listed)" {
			continue
		}
		out = append(out, g)
	}
	return out
}

// ParseGenres 解析 "A|B|C" 形式的类型串。
func ParseGenres(raw string) []string {
	if raw == "" {
		return nil
	}
	return NormalizeGenres(strings.Split(raw, "|"))
}
