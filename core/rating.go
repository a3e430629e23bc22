package core

import (
	"context"
	"fmt"
	"time"
)

// Rating 是一条评分观测：(用户, 物品, 分值, 观测时间)。
// 观测一旦记录不可变；同一 (user, item) 的后续评分以时间戳较新者覆盖。
type Rating struct {
	UserID     int64     `json:"user_id"`
	ItemID     int64     `json:"item_id"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// RatingBounds 是评分取值范围。越界观测以 DATA_INTEGRITY 拒绝，不做静默截断。
type RatingBounds struct {
	Min float64
	Max float64
}

// Validate 校验单条观测。返回 nil 表示可入库。
func (b RatingBounds) Validate(r Rating) error {
	if r.UserID <= 0 || r.ItemID <= 0 {
		return NewDomainError(ModuleIngest, ErrorCodeDataIntegrity,
			fmt.Sprintf("rating: invalid identity user=%d item=%d", r.UserID, r.ItemID))
	}
	if r.Value < b.Min || r.Value > b.Max {
		return NewDomainError(ModuleIngest, ErrorCodeDataIntegrity,
			fmt.Sprintf("rating: value %.2f out of range [%.1f, %.1f]", r.Value, b.Min, b.Max))
	}
	return nil
}

// Scale01 将评分线性缩放到 [0,1]（按配置的评分范围），越界值截断。
func (b RatingBounds) Scale01(v float64) float64 {
	span := b.Max - b.Min
	if span <= 0 {
		return 0
	}
	s := (v - b.Min) / span
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// RatingStore 是评分观测库的领域接口，由基础设施层（store）实现。
//
// 使用场景：
//   - All: 离线重训时读取全量观测集
//   - Since: 按水位线增量读取（驱动重训触发）
type RatingStore interface {
	// All 返回全量评分观测
	All(ctx context.Context) ([]Rating, error)

	// Since 返回观测时间晚于 watermark 的增量观测
	Since(ctx context.Context, watermark time.Time) ([]Rating, error)
}

// FriendRating 是好友动态中的一条评分。
type FriendRating struct {
	FriendID int64   `json:"friend_id"`
	ItemID   int64   `json:"item_id"`
	Rating   float64 `json:"rating"`
}

// FriendFeed 是外部社交图谱的好友动态接口。
// 实现只读不写；请求侧超时直接降级为无社交信号，不失败。
type FriendFeed interface {
	// FriendRatings 返回某用户已接受好友的评分历史
	FriendRatings(ctx context.Context, userID int64) ([]FriendRating, error)
}
