package model

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/movierec/core"
)

// simsCacheKey 是相似度表在 Store 中的冷启缓存 key。
// 缓存是尽力而为：命中省一次全量构建，未命中/解码失败则重算。
const simsCacheKey = "model:sims:v1"

// Trainer 负责离线训练：读取全量观测 -> 构建快照 -> 原子发布。
//
// 重训节奏由外部调度（定时器/摄入水位线）驱动；训练失败时保留上一个
// 可服务快照并按退避重试，绝不让读路径感知到训练中状态。
type Trainer struct {
	Ratings core.RatingStore
	Holder  *Holder
	Cfg     core.EngineConfig

	// Cache 可选：相似度表冷启缓存（进程重启免全量重算）
	Cache core.Store

	// ModelName 回传给后端的模型名，默认 "ibcf"
	ModelName string

	Logger *slog.Logger

	// lastTrained 上次训练完成时间，作为增量水位线
	lastTrained time.Time
}

func (t *Trainer) name() string {
	if t.ModelName == "" {
		return "ibcf"
	}
	return t.ModelName
}

func (t *Trainer) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

// Train 执行一次全量训练并发布快照。
func (t *Trainer) Train(ctx context.Context) (*Snapshot, error) {
	cfg := t.Cfg.Normalize()

	obs, err := t.Ratings.All(ctx)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeUpstreamTimeout,
			"trainer: rating store unavailable: "+err.Error())
	}

	matrix, report := BuildMatrix(obs, cfg.Bounds)
	if report.Dropped > 0 {
		t.logger().Warn("trainer: dropped malformed observations",
			"dropped", report.Dropped, "total", report.Total)
	}

	// 缓存只用于首次启动：重训必须基于最新观测重建并刷新缓存
	var sims SimTable
	var restored bool
	if !t.Holder.Ready() {
		sims, restored = t.restoreSims(ctx)
	}
	if !restored {
		sims, err = BuildSimilarity(ctx, matrix, cfg.MinCoRaters, cfg.TopNNeighbors, cfg.TrainShards)
		if err != nil {
			return nil, err
		}
		t.cacheSims(ctx, sims)
	}

	pop := BuildPopularity(matrix)

	snap := &Snapshot{
		Matrix:     matrix,
		Sims:       sims,
		Popularity: pop,
		Meta: Meta{
			Name:      t.name(),
			Version:   uuid.NewString(),
			TrainedAt: time.Now().UTC(),
		},
		Stats: Stats{
			Users:     len(matrix.Users),
			Items:     len(matrix.ItemRaters),
			Ratings:   report.Accepted,
			Dropped:   report.Dropped,
			RatingMin: cfg.Bounds.Min,
			RatingMax: cfg.Bounds.Max,
		},
		Config: cfg,
	}

	t.Holder.Swap(snap)
	t.lastTrained = snap.Meta.TrainedAt
	t.logger().Info("trainer: snapshot published",
		"version", snap.Meta.Version,
		"users", snap.Stats.Users,
		"items", snap.Stats.Items,
		"ratings", snap.Stats.Ratings)
	return snap, nil
}

// Run 周期性重训：有新观测才训练，失败按指数退避重试。
// 阻塞直到 ctx 取消；调用方通常放在独立 goroutine。
func (t *Trainer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	backoff := time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fresh, err := t.Ratings.Since(ctx, t.lastTrained)
		if err != nil {
			t.logger().Warn("trainer: watermark check failed", "error", err)
			continue
		}
		if len(fresh) == 0 {
			continue
		}

		if _, err := t.Train(ctx); err != nil {
			t.logger().Error("trainer: retrain failed, keeping last snapshot",
				"error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < time.Minute {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
	}
}

func (t *Trainer) restoreSims(ctx context.Context) (SimTable, bool) {
	if t.Cache == nil {
		return nil, false
	}
	data, err := t.Cache.Get(ctx, simsCacheKey)
	if err != nil {
		return nil, false
	}
	var sims SimTable
	if err := json.Unmarshal(data, &sims); err != nil {
		return nil, false
	}
	if len(sims) == 0 {
		return nil, false
	}
	t.logger().Info("trainer: similarity table restored from cache", "items", len(sims))
	return sims, true
}

func (t *Trainer) cacheSims(ctx context.Context, sims SimTable) {
	if t.Cache == nil || len(sims) == 0 {
		return
	}
	data, err := json.Marshal(sims)
	if err != nil {
		return
	}
	if err := t.Cache.Set(ctx, simsCacheKey, data); err != nil {
		t.logger().Warn("trainer: similarity cache write failed", "error", err)
	}
}
