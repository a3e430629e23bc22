package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rushteam/movierec/core"
)

// ratingRow 是评分观测在 Postgres 中的行结构。
type ratingRow struct {
	UserID     int64     `gorm:"column:user_id;primaryKey"`
	ItemID     int64     `gorm:"column:item_id;primaryKey"`
	Rating     float64   `gorm:"column:rating"`
	ObservedAt time.Time `gorm:"column:observed_at"`
}

func (ratingRow) TableName() string { return "ratings" }

// PostgresRatingStore 是 Postgres 实现的 core.RatingStore：
// 离线重训的全量/增量观测都从这里读。写入方是后端业务库，本服务只读。
type PostgresRatingStore struct {
	db *gorm.DB
}

// NewPostgresRatingStore 建立连接池并做一次连通性检查。
func NewPostgresRatingStore(dsn string, maxConns int) (*PostgresRatingStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresRatingStore{db: db}, nil
}

// All 返回全量评分观测，按 (user_id, item_id) 升序，保证重训输入序固定。
func (s *PostgresRatingStore) All(ctx context.Context) ([]core.Rating, error) {
	var rows []ratingRow
	if err := s.db.WithContext(ctx).
		Order("user_id ASC, item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	return toRatings(rows), nil
}

// Since 返回观测时间晚于 watermark 的增量观测（重训触发判断用）。
func (s *PostgresRatingStore) Since(ctx context.Context, watermark time.Time) ([]core.Rating, error) {
	var rows []ratingRow
	if err := s.db.WithContext(ctx).
		Where("observed_at > ?", watermark).
		Order("user_id ASC, item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ratings since %s: %w", watermark.Format(time.RFC3339), err)
	}
	return toRatings(rows), nil
}

func (s *PostgresRatingStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRatings(rows []ratingRow) []core.Rating {
	out := make([]core.Rating, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Rating{
			UserID:     row.UserID,
			ItemID:     row.ItemID,
			Value:      row.Rating,
			ObservedAt: row.ObservedAt,
		})
	}
	return out
}

var _ core.RatingStore = (*PostgresRatingStore)(nil)
