package model

import (
	"sort"
	"time"

	"github.com/rushteam/movierec/core"
)

// RatingMatrix 是稀疏的 用户×物品 评分矩阵，外加物品侧倒排与统计。
// 每次离线重训从全量观测集重建；构建完成后只读。
type RatingMatrix struct {
	// Users 用户 -> 物品 -> 评分
	Users map[int64]map[int64]float64

	// ItemRaters 物品 -> 用户 -> 评分（共同评分查询用的倒排表）
	ItemRaters map[int64]map[int64]float64

	// ItemStats 物品 -> 统计
	ItemStats map[int64]ItemStat

	// Bounds 构建时使用的评分范围
	Bounds core.RatingBounds
}

// ItemStat 是单个物品的聚合统计。
type ItemStat struct {
	Count       int
	Mean        float64
	LastRatedAt time.Time
}

// BuildReport 记录一次矩阵构建的结果：丢弃数用于观测，不中断构建。
type BuildReport struct {
	Total    int // 输入观测总数
	Accepted int // 入矩阵的 (user, item) 对数
	Dropped  int // 因 DATA_INTEGRITY 丢弃的观测数
	Replaced int // 被更新评分覆盖的旧观测数
}

// BuildMatrix 从全量观测集构建评分矩阵。
//
// 约束：
//   - 越界/畸形观测记为 Dropped，绝不静默截断
//   - 同一 (user, item) 重复观测按时间戳取最新（latest wins）
//   - 纯函数：相同观测集必然产出相同矩阵
func BuildMatrix(obs []core.Rating, bounds core.RatingBounds) (*RatingMatrix, BuildReport) {
	report := BuildReport{Total: len(obs)}

	// 先按 (user, item) 去重：时间戳新者胜；时间戳相同时取输入序靠后者
	type key struct{ u, i int64 }
	latest := make(map[key]core.Rating, len(obs))
	for _, r := range obs {
		if err := bounds.Validate(r); err != nil {
			report.Dropped++
			continue
		}
		k := key{r.UserID, r.ItemID}
		if prev, ok := latest[k]; ok {
			if r.ObservedAt.Before(prev.ObservedAt) {
				continue // 更旧的观测直接丢弃，不算覆盖
			}
			report.Replaced++
		}
		latest[k] = r
	}

	m := &RatingMatrix{
		Users:      make(map[int64]map[int64]float64),
		ItemRaters: make(map[int64]map[int64]float64),
		ItemStats:  make(map[int64]ItemStat),
		Bounds:     bounds,
	}

	sums := make(map[int64]float64)
	for k, r := range latest {
		if m.Users[k.u] == nil {
			m.Users[k.u] = make(map[int64]float64)
		}
		m.Users[k.u][k.i] = r.Value

		if m.ItemRaters[k.i] == nil {
			m.ItemRaters[k.i] = make(map[int64]float64)
		}
		m.ItemRaters[k.i][k.u] = r.Value

		st := m.ItemStats[k.i]
		st.Count++
		if r.ObservedAt.After(st.LastRatedAt) {
			st.LastRatedAt = r.ObservedAt
		}
		m.ItemStats[k.i] = st
		sums[k.i] += r.Value
	}

	for itemID, st := range m.ItemStats {
		if st.Count > 0 {
			st.Mean = sums[itemID] / float64(st.Count)
			m.ItemStats[itemID] = st
		}
	}

	report.Accepted = len(latest)
	return m, report
}

// UserHistory 返回用户评分历史的副本（调用方可自由修改，例如注入种子）。
func (m *RatingMatrix) UserHistory(userID int64) map[int64]float64 {
	src, ok := m.Users[userID]
	if !ok {
		return nil
	}
	out := make(map[int64]float64, len(src))
	for itemID, v := range src {
		out[itemID] = v
	}
	return out
}

// UserRatingCount 返回用户评分条数（冷启动判定）。
func (m *RatingMatrix) UserRatingCount(userID int64) int {
	return len(m.Users[userID])
}

// SortedUserIDs 返回升序的用户 ID 列表（相似度构建的确定性遍历序）。
func (m *RatingMatrix) SortedUserIDs() []int64 {
	ids := make([]int64, 0, len(m.Users))
	for id := range m.Users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
