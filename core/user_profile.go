package core

import "time"

// UserProfile 是用户画像：推荐 Pipeline 的共享上下文与解释信号源。
//
// 设计要点：
//  维度          作用
//  评分历史      warm/cold 分支判定、IBCF 种子
//  类型偏好      genre_match 解释因子
//  元数据        观测/缓存失效
type UserProfile struct {
	UserID int64

	// RatedCount 用户评分总数（冷启动分支依据）
	RatedCount int

	// GenreAffinity 类型偏好：key 为类型，value 为归一化权重（和为 1）。
	// 由用户高分物品的类型分布计算得出。
	GenreAffinity map[string]float64

	// BuiltAt 画像构建时间（跟随快照）
	BuiltAt time.Time
}

// NewUserProfile 创建一个新的用户画像。
func NewUserProfile(userID int64) *UserProfile {
	return &UserProfile{
		UserID:        userID,
		GenreAffinity: make(map[string]float64),
		BuiltAt:       time.Now(),
	}
}

// Affinity 返回某个类型的偏好权重，不存在时为 0。
func (p *UserProfile) Affinity(genre string) float64 {
	if p == nil || p.GenreAffinity == nil {
		return 0
	}
	return p.GenreAffinity[genre]
}
