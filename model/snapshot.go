package model

import (
	"sync/atomic"
	"time"

	"github.com/rushteam/movierec/core"
)

// Meta 是模型快照的元信息，随响应回传给后端。
type Meta struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
}

// Stats 是训练时的数据集统计，暴露在 /health。
type Stats struct {
	Users     int     `json:"users"`
	Items     int     `json:"items"`
	Ratings   int     `json:"ratings"`
	Dropped   int     `json:"dropped"`
	RatingMin float64 `json:"rating_min"`
	RatingMax float64 `json:"rating_max"`
}

// Snapshot 是一次离线训练的不可变产物：评分矩阵 + 相似度表 + 热门度表。
//
// 所有并发请求共享同一个快照只读服务；重训在旁路构建完整的新快照后
// 通过 Holder 一次原子替换发布，读路径永远不会看到半成品。
type Snapshot struct {
	Matrix     *RatingMatrix
	Sims       SimTable
	Popularity *PopTable
	Meta       Meta
	Stats      Stats
	Config     core.EngineConfig
}

// UserHistory 返回用户评分历史的副本。
func (s *Snapshot) UserHistory(userID int64) map[int64]float64 {
	return s.Matrix.UserHistory(userID)
}

// UserRatingCount 返回用户评分条数。
func (s *Snapshot) UserRatingCount(userID int64) int {
	return s.Matrix.UserRatingCount(userID)
}

// Neighbors 返回物品的相似邻居列表。
func (s *Snapshot) Neighbors(itemID int64) []Neighbor {
	return s.Sims.Neighbors(itemID)
}

// Holder 持有当前可服务的快照指针。
//
// 读路径无锁：Load 返回的快照在其生命周期内不变；
// 重训完成后 Swap 发布新快照，旧快照由 GC 在最后一个读者离开后回收。
type Holder struct {
	p atomic.Pointer[Snapshot]
}

// NewHolder 创建一个空 Holder（首次训练完成前 Load 返回 nil）。
func NewHolder() *Holder {
	return &Holder{}
}

// Load 返回当前快照；没有完成过训练时返回 nil。
func (h *Holder) Load() *Snapshot {
	return h.p.Load()
}

// Swap 原子发布新快照。
func (h *Holder) Swap(s *Snapshot) {
	h.p.Store(s)
}

// Ready 判断是否已有可服务的快照。
func (h *Holder) Ready() bool {
	return h.p.Load() != nil
}
