package core

import "github.com/rushteam/movierec/pkg/utils"

// RecommendContext 承载单次推荐请求的上下文，贯穿整个 Pipeline 透传。
// 进入 Pipeline 之前在编排层完成校验，之后任何 Node 不得修改请求字段。
type RecommendContext struct {
	// RequestID 由调用方（后端）传入，原样回显，用于链路追踪。
	RequestID string

	UserID int64

	// Limit/Offset 分页窗口；Limit 上限由 EngineConfig.HardLimit 约束。
	Limit  int
	Offset int

	// Exclude 是请求级排除集合（已去重归一）。排除在任何截断之前生效。
	Exclude map[int64]struct{}

	// UseSocial 是否请求好友信号混合
	UseSocial bool

	// SeedItemIDs 种子物品：低历史用户给出种子时走种子推荐而非热门兜底
	SeedItemIDs []int64

	// User 是用户画像（类型偏好等），由编排层从快照+元数据构建，可为空
	User *UserProfile

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	// 例如：冷启动、社交降级等
	Labels map[string]utils.Label

	// Params 请求级上下文参数（locale、time_of_day 等透传字段）
	Params map[string]any
}

// Excluded 判断物品是否在排除集合中。
func (rctx *RecommendContext) Excluded(itemID int64) bool {
	if rctx.Exclude == nil {
		return false
	}
	_, ok := rctx.Exclude[itemID]
	return ok
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
