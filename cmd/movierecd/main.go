// movierecd 是推荐服务进程：加载配置、建立存储连接、拉起离线重训与
// 评分摄入，最后对内暴露 HTTP 接口。
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/ingest"
	"github.com/rushteam/movierec/meta"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/server"
	"github.com/rushteam/movierec/social"
	"github.com/rushteam/movierec/store"
)

func main() {
	configPath := flag.String("config", "", "path to service config yaml")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := LoadServiceConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store：Redis 或内存
	var kv core.KeyValueStore
	if cfg.Redis.Addr != "" {
		redisStore, err := store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		kv = redisStore
	} else {
		kv = store.NewMemoryStore()
		logger.Warn("redis not configured, using in-memory store")
	}
	defer kv.Close()

	// 评分库：Postgres 或内存
	var ratings core.RatingStore
	var memRatings *store.MemoryRatingStore
	if cfg.Postgres.DSN != "" {
		pg, err := store.NewPostgresRatingStore(cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pg.Close()
		ratings = pg
	} else {
		memRatings = store.NewMemoryRatingStore()
		ratings = memRatings
		logger.Warn("postgres not configured, using in-memory rating store")
	}

	// 离线训练
	holder := model.NewHolder()
	trainer := &model.Trainer{
		Ratings: ratings,
		Holder:  holder,
		Cfg:     cfg.Engine,
		Cache:   kv,
		Logger:  logger,
	}
	if _, err := trainer.Train(ctx); err != nil {
		// 首训失败不退出：/health 报 warming，重训循环继续尝试
		logger.Error("initial training failed", "error", err)
	}
	go trainer.Run(ctx, cfg.RetrainInterval)

	// 物品元数据：Feast 优先，Store 兜底。Feast 按快照中的物品集批量拉取。
	var metaService meta.Service
	{
		loaders := []meta.Loader{}
		if cfg.Feast.Host != "" {
			feastLoader, err := meta.NewFeastLoader(cfg.Feast.Host, cfg.Feast.Port, cfg.Feast.Project)
			if err != nil {
				logger.Warn("feast unavailable, falling back to store metadata", "error", err)
			} else {
				defer feastLoader.Close()
				loaders = append(loaders, feastLoader)
			}
		}
		loaders = append(loaders, &meta.StoreLoader{Store: kv})

		var itemIDs []int64
		if snap := holder.Load(); snap != nil {
			itemIDs = make([]int64, 0, len(snap.Popularity.Ranked))
			for _, rec := range snap.Popularity.Ranked {
				itemIDs = append(itemIDs, rec.ItemID)
			}
		}

		svc, err := meta.LoadService(ctx, &meta.ChainLoader{Loaders: loaders, Logger: logger}, itemIDs)
		if err != nil {
			logger.Warn("item metadata unavailable, explanations degrade to untitled", "error", err)
			svc = meta.NewMemoryService(nil)
		}
		metaService = svc
	}

	// 评分摄入
	if len(cfg.Kafka.Brokers) > 0 {
		if memRatings == nil {
			logger.Warn("kafka ingest requires in-memory rating store, skipping; postgres is fed by backend")
		} else {
			consumer, err := ingest.NewKafkaConsumer(
				cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic,
				cfg.Engine.Bounds, memRatings, logger)
			if err != nil {
				log.Fatalf("kafka consumer: %v", err)
			}
			defer consumer.Close()
			go func() {
				if err := consumer.Run(ctx); err != nil {
					logger.Error("ingest stopped", "error", err)
				}
			}()
		}
	}

	// 推荐引擎
	eng := engine.New(cfg.Engine, holder)
	eng.Store = kv
	eng.Feed = social.NewStoreFeed(kv)
	eng.Meta = metaService
	eng.Logger = logger
	eng.TTLSeconds = cfg.TTLSeconds

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: server.NewRouter(server.Options{
			Engine:        eng,
			InternalToken: cfg.InternalToken,
			Logger:        logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("movierecd listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("movierecd stopped")
}
