package core

import "time"

// EngineConfig 是推荐引擎的可调参数集合。
//
// 原则：不猜测"正确值"，所有阈值/权重外置为配置；
// 这里的默认值只保证开箱能跑，不代表调参结论。
type EngineConfig struct {
	// Bounds 评分取值范围（入库校验 + 分数缩放到 [0,1] 都用它）
	Bounds RatingBounds `yaml:"bounds"`

	// MinCoRaters 两个物品至少需要多少个共同评分用户才计算相似度
	MinCoRaters int `yaml:"min_co_raters"`

	// TopNNeighbors 每个物品保留的相似邻居数上限（内存上界）
	TopNNeighbors int `yaml:"top_n_neighbors"`

	// MinUserHistory 冷启动阈值：评分数低于它且无种子时走热门兜底
	MinUserHistory int `yaml:"min_user_history"`

	// HardLimit 请求 limit 的硬上限
	HardLimit int `yaml:"hard_limit"`

	// SocialWeight 好友信号混合权重：final = (1-w)*ibcf + w*social
	SocialWeight float64 `yaml:"social_weight"`

	// PositiveRating 好友评分达到该值记为"正向"
	PositiveRating float64 `yaml:"positive_rating"`

	// SeedRating 种子物品注入历史时使用的伪评分
	SeedRating float64 `yaml:"seed_rating"`

	// TrendingWindow 最近一次评分落在窗口内的热门物品解释为 trending 而非 popular
	TrendingWindow time.Duration `yaml:"trending_window"`

	// RequestBudget 单次请求的墙钟预算，超时降级为尽力而为
	RequestBudget time.Duration `yaml:"request_budget"`

	// SocialTimeout 好友动态拉取超时，超时跳过社交混合
	SocialTimeout time.Duration `yaml:"social_timeout"`

	// TrainShards 相似度构建的并行分片数（0 表示单分片）
	TrainShards int `yaml:"train_shards"`
}

// DefaultEngineConfig 返回默认配置。
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Bounds:         RatingBounds{Min: 0.5, Max: 5.0},
		MinCoRaters:    2,
		TopNNeighbors:  50,
		MinUserHistory: 5,
		HardLimit:      50,
		SocialWeight:   0.3,
		PositiveRating: 4.0,
		SeedRating:     4.0,
		TrendingWindow: 30 * 24 * time.Hour,
		RequestBudget:  2 * time.Second,
		SocialTimeout:  500 * time.Millisecond,
		TrainShards:    4,
	}
}

// Normalize 为零值字段补默认值，返回修正后的副本。
func (c EngineConfig) Normalize() EngineConfig {
	def := DefaultEngineConfig()
	if c.Bounds.Max <= c.Bounds.Min {
		c.Bounds = def.Bounds
	}
	if c.MinCoRaters <= 0 {
		c.MinCoRaters = def.MinCoRaters
	}
	if c.TopNNeighbors <= 0 {
		c.TopNNeighbors = def.TopNNeighbors
	}
	if c.MinUserHistory <= 0 {
		c.MinUserHistory = def.MinUserHistory
	}
	if c.HardLimit <= 0 {
		c.HardLimit = def.HardLimit
	}
	if c.SocialWeight <= 0 || c.SocialWeight >= 1 {
		c.SocialWeight = def.SocialWeight
	}
	if c.PositiveRating <= 0 {
		c.PositiveRating = def.PositiveRating
	}
	if c.SeedRating <= 0 {
		c.SeedRating = def.SeedRating
	}
	if c.TrendingWindow <= 0 {
		c.TrendingWindow = def.TrendingWindow
	}
	if c.RequestBudget <= 0 {
		c.RequestBudget = def.RequestBudget
	}
	if c.SocialTimeout <= 0 {
		c.SocialTimeout = def.SocialTimeout
	}
	if c.TrainShards <= 0 {
		c.TrainShards = 1
	}
	return c
}
