package config

import (
	"fmt"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/explain"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/meta"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/conv"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/rerank"
)

// Deps 是构建内置 Node 所需的运行时依赖。
// Pipeline 配置只描述结构与参数，快照/存储/好友动态这类活对象从这里注入。
type Deps struct {
	Snapshots *model.Holder
	Store     core.Store
	Feed      core.FriendFeed
	Meta      meta.Service
	Engine    core.EngineConfig
}

func (d *Deps) snapshot() *model.Snapshot {
	if d == nil || d.Snapshots == nil {
		return nil
	}
	return d.Snapshots.Load()
}

// Factory 返回一个包含所有内置 Node 的工厂，外加 Register 注册的自定义 Node。
func Factory(deps *Deps) *pipeline.NodeFactory {
	if deps == nil {
		deps = &Deps{Engine: core.DefaultEngineConfig()}
	}
	factory := pipeline.NewNodeFactory()

	// Recall Nodes
	factory.Register("recall.fanout", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFanoutNode(deps, cfg)
	})
	factory.Register("recall.ibcf", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildIBCFNode(deps, cfg)
	})
	factory.Register("recall.popular", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildPopularNode(deps, cfg)
	})

	// Filter Nodes
	factory.Register("filter", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(deps, cfg)
	})

	// ReRank Nodes
	factory.Register("rerank.social", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildSocialNode(deps, cfg)
	})
	factory.Register("rerank.backfill", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &rerank.BackfillNode{}, nil
	})
	factory.Register("rerank.sort", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &rerank.SortNode{}, nil
	})
	factory.Register("rerank.topn", func(cfg map[string]interface{}) (pipeline.Node, error) {
		n := conv.ConfigGetInt64(cfg, "n", 0)
		return &rerank.TopNNode{N: int(n)}, nil
	})
	factory.Register("rerank.page", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &rerank.PageNode{}, nil
	})

	// PostProcess Nodes
	factory.Register("explain", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &explain.ExplainNode{
			Meta:     deps.Meta,
			Snapshot: deps.snapshot,
			Cfg:      deps.Engine,
		}, nil
	})

	// 自定义 Node
	customBuildersMu.RLock()
	for typeName, builder := range customBuilders {
		factory.Register(typeName, builder)
	}
	customBuildersMu.RUnlock()

	return factory
}

func buildIBCFNode(deps *Deps, _ map[string]interface{}) (pipeline.Node, error) {
	if deps.Snapshots == nil {
		return nil, fmt.Errorf("recall.ibcf requires snapshot holder")
	}
	return &recall.IBCF{Snapshot: deps.snapshot, Cfg: deps.Engine}, nil
}

func buildPopularNode(deps *Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	if deps.Snapshots == nil {
		return nil, fmt.Errorf("recall.popular requires snapshot holder")
	}
	node := &recall.Popular{
		Snapshot: deps.snapshot,
		Cfg:      deps.Engine,
		Limit:    int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}
	if key := conv.ConfigGet[string](cfg, "key", ""); key != "" {
		node.Store = deps.Store
		node.Key = key
	}
	return node, nil
}

func buildFanoutNode(deps *Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		sourceType := conv.ConfigGet[string](sourceMap, "type", "")
		switch sourceType {
		case "ibcf":
			node, err := buildIBCFNode(deps, sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, node.(*recall.IBCF))
		case "popular":
			node, err := buildPopularNode(deps, sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, node.(*recall.Popular))
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}

	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet[bool](cfg, "dedup", true),
		MergeStrategy: conv.ConfigGet[string](cfg, "merge_strategy", "priority"),
	}
	if ms := conv.ConfigGetInt64(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	return fanout, nil
}

func buildFilterNode(deps *Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet[string](filterMap, "type", "")
		switch filterType {
		case "exclude":
			filters = append(filters, &filter.ExcludeFilter{})
		case "seen":
			filters = append(filters, &filter.SeenFilter{Snapshot: deps.snapshot})
		case "expr":
			expr := conv.ConfigGet[string](filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("expr filter requires expr")
			}
			filters = append(filters, &filter.ExprFilter{Expr: expr})
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func buildSocialNode(deps *Deps, cfg map[string]interface{}) (pipeline.Node, error) {
	node := &rerank.SocialBoostNode{
		Feed: deps.Feed,
		Cfg:  deps.Engine,
	}
	if ms := conv.ConfigGetInt64(cfg, "timeout_ms", 0); ms > 0 {
		node.Timeout = time.Duration(ms) * time.Millisecond
	}
	return node, nil
}
