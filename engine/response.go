package engine

import (
	"encoding/json"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/model"
)

// Request 是一次推荐请求。由 HTTP 层解码后原样传入，编排层统一校验。
// 信封格式跟后端约定一致：use_social / seed_item_ids 嵌在 context 里。
type Request struct {
	RequestID      string         `json:"request_id"`
	UserID         int64          `json:"user_id"`
	Limit          int            `json:"limit"`
	Offset         int            `json:"offset"`
	ExcludeItemIDs []int64        `json:"exclude_item_ids"`
	Context        RequestContext `json:"context"`
}

// RequestContext 是请求信封中的 context 对象。已知键解析成类型字段，
// 其余键（locale、time_of_day 等）原样保留在 Params 里透传。
type RequestContext struct {
	UseSocial   bool
	SeedItemIDs []int64
	Params      map[string]any
}

func (c *RequestContext) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["use_social"]; ok {
		if err := json.Unmarshal(v, &c.UseSocial); err != nil {
			return err
		}
		delete(raw, "use_social")
	}
	if v, ok := raw["seed_item_ids"]; ok {
		if err := json.Unmarshal(v, &c.SeedItemIDs); err != nil {
			return err
		}
		delete(raw, "seed_item_ids")
	}
	if len(raw) > 0 {
		c.Params = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			c.Params[k] = val
		}
	}
	return nil
}

func (c RequestContext) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Params)+2)
	for k, v := range c.Params {
		out[k] = v
	}
	out["use_social"] = c.UseSocial
	if len(c.SeedItemIDs) > 0 {
		out["seed_item_ids"] = c.SeedItemIDs
	}
	return json.Marshal(out)
}

// RecommendedItem 是响应中的单个推荐结果。
type RecommendedItem struct {
	ItemID      int64             `json:"item_id"`
	Score       float64           `json:"score"`
	Rank        int               `json:"rank"`
	Explanation *core.Explanation `json:"explanation,omitempty"`
}

// ResponseMeta 是响应级观测信息。
type ResponseMeta struct {
	LatencyMs int64 `json:"latency_ms"`
}

// Response 是推荐响应信封。
// GeneratedAt 统一为 UTC RFC3339；TTLSeconds 告诉后端这份结果可以缓存多久。
type Response struct {
	RequestID   string            `json:"request_id"`
	UserID      int64             `json:"user_id"`
	Model       model.Meta        `json:"model"`
	GeneratedAt time.Time         `json:"generated_at"`
	TTLSeconds  int               `json:"ttl_seconds"`
	Items       []RecommendedItem `json:"items"`
	Meta        ResponseMeta      `json:"meta"`
}

// ExplainRequest 是单物品解释请求（用户已经看到某个推荐，问"为什么"）。
type ExplainRequest struct {
	RequestID string `json:"request_id"`
	UserID    int64  `json:"user_id"`
	ItemID    int64  `json:"item_id"`
}

// SocialSignal 是解释响应中的好友信号摘要。
type SocialSignal struct {
	FriendCount int     `json:"friend_count"`
	MeanRating  float64 `json:"mean_rating"`
}

// ExplainResponse 是单物品解释响应。
// AIScore 是置信度映射到 0-100 的整数，给 UI 直接展示。
type ExplainResponse struct {
	RequestID   string            `json:"request_id"`
	UserID      int64             `json:"user_id"`
	ItemID      int64             `json:"item_id"`
	Model       model.Meta        `json:"model"`
	GeneratedAt time.Time         `json:"generated_at"`
	Explanation *core.Explanation `json:"explanation"`
	AIScore     int               `json:"ai_score"`
	Social      *SocialSignal     `json:"social,omitempty"`
}
