package model

import (
	"math"
	"sort"
	"time"
)

// PopRecord 是单个物品的热门度记录。
type PopRecord struct {
	ItemID      int64     `json:"item_id"`
	Count       int       `json:"rating_count"`
	Mean        float64   `json:"mean_rating"`
	Score       float64   `json:"score"` // mean * log1p(count)：奖励量级又抑制纯刷量
	LastRatedAt time.Time `json:"last_rated_at"`
}

// PopTable 是热门度表：冷启动与候选不足时的兜底排序来源。
type PopTable struct {
	Records map[int64]PopRecord

	// Ranked 预排序列表：score 降序，并列取更高 count，再取更小物品 ID
	Ranked []PopRecord

	// MaxScore 用于把热门分归一到 [0,1]
	MaxScore float64
}

// BuildPopularity 从评分矩阵统计热门度表。与相似度表在同一次重训中成对重建。
func BuildPopularity(m *RatingMatrix) *PopTable {
	t := &PopTable{
		Records: make(map[int64]PopRecord, len(m.ItemStats)),
		Ranked:  make([]PopRecord, 0, len(m.ItemStats)),
	}
	for itemID, st := range m.ItemStats {
		rec := PopRecord{
			ItemID:      itemID,
			Count:       st.Count,
			Mean:        st.Mean,
			Score:       st.Mean * math.Log1p(float64(st.Count)),
			LastRatedAt: st.LastRatedAt,
		}
		t.Records[itemID] = rec
		t.Ranked = append(t.Ranked, rec)
		if rec.Score > t.MaxScore {
			t.MaxScore = rec.Score
		}
	}

	sort.Slice(t.Ranked, func(a, b int) bool {
		ra, rb := t.Ranked[a], t.Ranked[b]
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		if ra.Count != rb.Count {
			return ra.Count > rb.Count
		}
		return ra.ItemID < rb.ItemID
	})
	return t
}

// Normalized 把热门分归一到 [0,1]。
func (t *PopTable) Normalized(score float64) float64 {
	if t.MaxScore <= 0 {
		return 0
	}
	s := score / t.MaxScore
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}

// Trending 判断某条记录在给定时刻是否处于"近期热门"窗口内。
func (r PopRecord) Trending(now time.Time, window time.Duration) bool {
	if r.LastRatedAt.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(r.LastRatedAt) <= window
}
