// Package engine 是推荐编排层：校验请求、选择冷/热路径、组装 Pipeline、
// 封装响应信封。HTTP 层只做编解码，全部业务语义在这里收口。
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/explain"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/meta"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/rerank"
	"github.com/rushteam/movierec/social"
)

// defaultLimit 请求未指定 limit 时的默认窗口
const defaultLimit = 10

// Engine 是推荐引擎门面。除 Snapshots 外其余依赖均可为空：
// Meta 为空时解释退化为无标题文案，Feed 为空时社交混合整体跳过。
type Engine struct {
	Cfg        core.EngineConfig
	Snapshots  *model.Holder
	Store      core.Store
	Feed       core.FriendFeed
	Meta       meta.Service
	Logger     *slog.Logger
	TTLSeconds int // 响应可缓存秒数，0 表示不缓存
}

// New 创建引擎并归一配置。
func New(cfg core.EngineConfig, snapshots *model.Holder) *Engine {
	cfg = cfg.Normalize()
	return &Engine{
		Cfg:       cfg,
		Snapshots: snapshots,
		Logger:    slog.Default(),
	}
}

// Health 是 /health 暴露的服务状态。
type Health struct {
	Status string       `json:"status"` // ok / warming
	Model  *model.Meta  `json:"model,omitempty"`
	Stats  *model.Stats `json:"stats,omitempty"`
}

// Healthz 返回当前服务状态：首次训练完成前为 warming。
func (e *Engine) Healthz() Health {
	snap := e.Snapshots.Load()
	if snap == nil {
		return Health{Status: "warming"}
	}
	m, st := snap.Meta, snap.Stats
	return Health{Status: "ok", Model: &m, Stats: &st}
}

// Recommend 执行一次完整的推荐：
// 校验 → 冷/热路径选择 → 召回 → 过滤 → 社交混合 → 兜底分带 → 排序 → 解释 → 分页。
func (e *Engine) Recommend(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	snap, rctx, err := e.prepare(req)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if e.Cfg.RequestBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Cfg.RequestBudget)
		defer cancel()
	}

	cold := snap.UserRatingCount(req.UserID) < e.Cfg.MinUserHistory && len(req.Context.SeedItemIDs) == 0
	var p *pipeline.Pipeline
	if cold {
		rctx.PutLabel("cold_start", coldLabel())
		p = e.coldPipeline(snap)
	} else {
		p = e.warmPipeline(snap)
	}

	items, err := p.Run(runCtx, rctx, nil)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		// 预算耗尽但调用方还在等：放弃个性化链路，降级为热门兜底（尽力而为，不报错）
		rctx.PutLabel("degraded", utils.Label{Value: "budget", Source: "engine"})
		e.Logger.Warn("request budget exceeded, serving popularity fallback",
			"request_id", rctx.RequestID, "user_id", req.UserID)
		items, err = e.coldPipeline(snap).Run(ctx, rctx, nil)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUpstreamTimeout,
				"engine: request budget exceeded")
		}
		return nil, err
	}

	resp := &Response{
		RequestID:   rctx.RequestID,
		UserID:      req.UserID,
		Model:       snap.Meta,
		GeneratedAt: time.Now().UTC(),
		TTLSeconds:  e.TTLSeconds,
		Items:       make([]RecommendedItem, 0, len(items)),
	}
	for i, it := range items {
		resp.Items = append(resp.Items, RecommendedItem{
			ItemID:      it.ID,
			Score:       it.Score,
			Rank:        rctx.Offset + i + 1,
			Explanation: it.Explanation,
		})
	}
	resp.Meta.LatencyMs = time.Since(start).Milliseconds()

	e.Logger.Info("recommend served",
		"request_id", rctx.RequestID,
		"user_id", req.UserID,
		"cold_start", cold,
		"returned", len(resp.Items),
		"latency_ms", resp.Meta.LatencyMs,
	)
	return resp, nil
}

// prepare 做请求校验并构建推荐上下文。校验失败一律 INVALID_INPUT。
func (e *Engine) prepare(req *Request) (*model.Snapshot, *core.RecommendContext, error) {
	if req == nil {
		return nil, nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: request is nil")
	}
	if req.UserID <= 0 {
		return nil, nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: user_id must be positive")
	}
	if req.Limit < 0 {
		return nil, nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: limit must not be negative")
	}
	if req.Limit > e.Cfg.HardLimit {
		return nil, nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: limit exceeds hard cap")
	}
	if req.Offset < 0 {
		return nil, nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: offset must not be negative")
	}
	for _, id := range req.Context.SeedItemIDs {
		if id <= 0 {
			return nil, nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
				"engine: seed item ids must be positive")
		}
	}

	snap := e.Snapshots.Load()
	if snap == nil {
		return nil, nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeModelNotReady,
			"engine: model not trained yet")
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	exclude := make(map[int64]struct{}, len(req.ExcludeItemIDs))
	for _, id := range req.ExcludeItemIDs {
		if id > 0 {
			exclude[id] = struct{}{}
		}
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	rctx := &core.RecommendContext{
		RequestID:   requestID,
		UserID:      req.UserID,
		Limit:       limit,
		Offset:      req.Offset,
		Exclude:     exclude,
		UseSocial:   req.Context.UseSocial,
		SeedItemIDs: req.Context.SeedItemIDs,
		Params:      req.Context.Params,
	}
	rctx.User = e.profile(snap, req.UserID)
	return snap, rctx, nil
}

// profile 构建用户画像（类型偏好）。元数据缺失时返回空画像。
func (e *Engine) profile(snap *model.Snapshot, userID int64) *core.UserProfile {
	p := core.NewUserProfile(userID)
	p.RatedCount = snap.UserRatingCount(userID)
	if e.Meta != nil {
		p.GenreAffinity = meta.Affinity(snap.UserHistory(userID), e.Cfg.PositiveRating, e.Meta.Genres)
	}
	return p
}

// warmPipeline 是有足够历史（或带种子）的个性化链路。
func (e *Engine) warmPipeline(snap *model.Snapshot) *pipeline.Pipeline {
	snapshot := func() *model.Snapshot { return snap }
	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.Fanout{
				Sources: []recall.Source{
					&recall.IBCF{Snapshot: snapshot, Cfg: e.Cfg},
					&recall.Popular{Snapshot: snapshot, Cfg: e.Cfg, Store: e.Store, Key: popularKey},
				},
				Dedup:         true,
				MergeStrategy: "priority",
			},
			&filter.FilterNode{Filters: []filter.Filter{
				&filter.ExcludeFilter{},
				&filter.SeenFilter{Snapshot: snapshot},
			}},
			&rerank.SocialBoostNode{Feed: e.Feed, Cfg: e.Cfg},
			&rerank.BackfillNode{},
			&rerank.SortNode{},
			&explain.ExplainNode{Meta: e.Meta, Snapshot: snapshot, Cfg: e.Cfg},
			&rerank.PageNode{},
		},
	}
}

// coldPipeline 是冷启动兜底链路：纯热门，不做社交混合。
func (e *Engine) coldPipeline(snap *model.Snapshot) *pipeline.Pipeline {
	snapshot := func() *model.Snapshot { return snap }
	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.Popular{Snapshot: snapshot, Cfg: e.Cfg, Store: e.Store, Key: popularKey},
			&filter.FilterNode{Filters: []filter.Filter{
				&filter.ExcludeFilter{},
				&filter.SeenFilter{Snapshot: snapshot},
			}},
			&rerank.SortNode{},
			&explain.ExplainNode{Meta: e.Meta, Snapshot: snapshot, Cfg: e.Cfg},
			&rerank.PageNode{},
		},
	}
}

// popularKey 是运营热门榜单在 Store 中的 key（没配榜单时 ZRange 落空，
// 召回自动退回快照热门度表）。
const popularKey = "pop:items"

// Explain 为单个 (user, item) 生成解释：用户已经看到某个推荐，问"为什么"。
func (e *Engine) Explain(ctx context.Context, req *ExplainRequest) (*ExplainResponse, error) {
	if req == nil || req.UserID <= 0 || req.ItemID <= 0 {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: user_id and item_id must be positive")
	}
	snap := e.Snapshots.Load()
	if snap == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeModelNotReady,
			"engine: model not trained yet")
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	rctx := &core.RecommendContext{
		RequestID: requestID,
		UserID:    req.UserID,
		User:      e.profile(snap, req.UserID),
	}

	it := core.NewItem(req.ItemID)
	e.attachIBCFSignal(snap, req.UserID, it)
	e.attachPopularitySignal(snap, it)
	sig := e.attachSocialSignal(ctx, req.UserID, it)

	node := &explain.ExplainNode{
		Meta:     e.Meta,
		Snapshot: func() *model.Snapshot { return snap },
		Cfg:      e.Cfg,
	}
	items, err := node.Process(ctx, rctx, []*core.Item{it})
	if err != nil {
		return nil, err
	}
	exp := items[0].Explanation

	resp := &ExplainResponse{
		RequestID:   requestID,
		UserID:      req.UserID,
		ItemID:      req.ItemID,
		Model:       snap.Meta,
		GeneratedAt: time.Now().UTC(),
		Explanation: exp,
		AIScore:     int(math.Round(exp.Confidence * 100)),
	}
	if sig != nil {
		resp.Social = &SocialSignal{FriendCount: sig.Count, MeanRating: sig.Mean}
	}
	return resp, nil
}

func coldLabel() utils.Label {
	return utils.Label{Value: "true", Source: "engine"}
}

func recallLabel(source string) utils.Label {
	return utils.Label{Value: source, Source: "engine"}
}

func appliedLabel() utils.Label {
	return utils.Label{Value: "applied", Source: "engine"}
}

// attachIBCFSignal 补齐 IBCF 证据：用户历史中对该物品贡献最大的种子
// （贡献 = sim * rating，不是单纯的相似度）。
func (e *Engine) attachIBCFSignal(snap *model.Snapshot, userID int64, it *core.Item) {
	history := snap.UserHistory(userID)
	if len(history) == 0 {
		return
	}
	var bestSeed int64
	var bestSim, bestContrib, num, den float64
	for _, nb := range snap.Neighbors(it.ID) {
		rating, rated := history[nb.ItemID]
		if !rated {
			continue
		}
		contrib := nb.Sim * rating
		num += contrib
		den += nb.Sim
		if contrib > bestContrib || (contrib == bestContrib && (bestSeed == 0 || nb.ItemID < bestSeed)) {
			bestContrib = contrib
			bestSim = nb.Sim
			bestSeed = nb.ItemID
		}
	}
	if den <= 0 {
		return
	}
	it.Score = e.Cfg.Bounds.Scale01(num / den)
	it.Meta["ibcf_pred"] = num / den
	it.Meta["best_seed_id"] = bestSeed
	it.Meta["best_seed_sim"] = bestSim
	if num > 0 {
		it.Meta["best_seed_share"] = bestContrib / num
	}
	it.PutLabel("recall_source", recallLabel("ibcf"))
}

// attachPopularitySignal 补齐热门证据。只有没有 IBCF 信号时才作为主解释来源。
func (e *Engine) attachPopularitySignal(snap *model.Snapshot, it *core.Item) {
	rec, ok := snap.Popularity.Records[it.ID]
	if !ok {
		return
	}
	pop := snap.Popularity.Normalized(rec.Score)
	it.Meta["pop_score"] = pop
	it.Meta["rating_count"] = int64(rec.Count)
	it.Meta["mean_rating"] = rec.Mean
	it.Meta["trending"] = rec.Trending(time.Now().UTC(), e.Cfg.TrendingWindow)
	if _, hasIBCF := it.Meta["best_seed_id"]; !hasIBCF {
		it.Score = pop
		it.PutLabel("recall_source", recallLabel("popular"))
	}
}

// attachSocialSignal 补齐好友信号证据，失败静默降级。
func (e *Engine) attachSocialSignal(ctx context.Context, userID int64, it *core.Item) *social.Signal {
	if e.Feed == nil {
		return nil
	}
	feedCtx := ctx
	if e.Cfg.SocialTimeout > 0 {
		var cancel context.CancelFunc
		feedCtx, cancel = context.WithTimeout(ctx, e.Cfg.SocialTimeout)
		defer cancel()
	}
	ratings, err := e.Feed.FriendRatings(feedCtx, userID)
	if err != nil || len(ratings) == 0 {
		return nil
	}
	sig, ok := social.Aggregate(ratings, e.Cfg.PositiveRating)[it.ID]
	if !ok {
		return nil
	}
	it.Meta["social_friend_count"] = int64(sig.Count)
	it.Meta["social_positive_count"] = int64(sig.Positive)
	it.Meta["social_mean"] = sig.Mean
	it.PutLabel("social", appliedLabel())
	return &sig
}
