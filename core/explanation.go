package core

// Reason 是解释因子的类型枚举，同时作为 primary_reason 的取值域。
type Reason string

const (
	ReasonGenreMatch     Reason = "genre_match"       // 类型重合：与用户高分物品共享类型
	ReasonBecauseYouRated Reason = "because_you_rated" // IBCF 贡献：因为你评过某个相似物品
	ReasonSimilarUsers   Reason = "similar_users"     // 相似用户信号（保留值，当前链路不产出）
	ReasonFriendActivity Reason = "friend_activity"   // 好友信号参与混合
	ReasonTrending       Reason = "trending"          // 兜底：近期热门
	ReasonPopular        Reason = "popular"           // 兜底：长期热门
)

// Payload 是因子证据的标记接口：每种因子类型有自己的强类型证据结构，
// 避免 map[string]any 造成的 UI 侧 schema 漂移；线上仍按 JSON 序列化。
type Payload interface {
	payloadReason() Reason
}

// GenreMatchPayload 是类型重合因子的证据。
type GenreMatchPayload struct {
	Genres []string `json:"genres"` // 重合的类型，字典序
}

func (GenreMatchPayload) payloadReason() Reason { return ReasonGenreMatch }

// BecauseYouRatedPayload 是 IBCF 贡献因子的证据：贡献最大的种子物品。
type BecauseYouRatedPayload struct {
	SeedItemID int64  `json:"seed_item_id"`
	SeedTitle  string `json:"seed_title,omitempty"`
}

func (BecauseYouRatedPayload) payloadReason() Reason { return ReasonBecauseYouRated }

// FriendActivityPayload 是好友信号因子的证据。
type FriendActivityPayload struct {
	FriendCount   int     `json:"friend_count"`   // 评分达到正向阈值的好友数
	MeanRating    float64 `json:"mean_rating"`    // 好友平均评分（原始评分尺度）
	WeightApplied float64 `json:"weight_applied"` // 实际生效的混合权重
}

func (FriendActivityPayload) payloadReason() Reason { return ReasonFriendActivity }

// PopularityPayload 是热门兜底因子的证据。
type PopularityPayload struct {
	RatingCount int     `json:"rating_count"`
	MeanRating  float64 `json:"mean_rating"`
}

func (PopularityPayload) payloadReason() Reason { return ReasonPopular }

// Factor 是解释中的一个带权因子。
// 权重非负、不要求归一（表达相对贡献，不是概率划分）。
type Factor struct {
	Type        Reason  `json:"type"`
	Weight      float64 `json:"weight"`
	Value       float64 `json:"value"`
	Payload     Payload `json:"payload"`
	Description string  `json:"description"`
}

// Explanation 是单个推荐结果的结构化解释。
// 不变式：PrimaryReason 等于权重最大因子的 Type；Confidence 为该权重截断到 [0,1]。
type Explanation struct {
	PrimaryReason Reason   `json:"primary_reason"`
	Confidence    float64  `json:"confidence"`
	Text          string   `json:"text"`
	Factors       []Factor `json:"factors"`
}

// Finalize 依据因子列表回填 PrimaryReason 与 Confidence。
// 权重并列时取列表中靠前者（因子按固定优先级顺序构建，保证确定性）。
func (e *Explanation) Finalize() {
	if len(e.Factors) == 0 {
		return
	}
	best := 0
	for i := 1; i < len(e.Factors); i++ {
		if e.Factors[i].Weight > e.Factors[best].Weight {
			best = i
		}
	}
	e.PrimaryReason = e.Factors[best].Type
	c := e.Factors[best].Weight
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	e.Confidence = c
}
