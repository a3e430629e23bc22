// Package movierec 是一个电影推荐引擎：物品协同过滤（IBCF）打底，
// 热门兜底、社交信号混合、每个结果附带结构化解释。
//
// 设计要点：
// - Pipeline-first: 推荐链路由 Node 串联（Recall → Filter → ReRank → PostProcess）
// - 快照驱动: 离线重训产出不可变 Snapshot，读路径无锁原子切换
// - 确定性: 同一数据版本、同一请求，输出逐字节一致
package movierec

import "github.com/rushteam/movierec/pipeline"

// 轻量 facade：便于直接 import "movierec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
