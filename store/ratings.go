package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/movierec/core"
)

// MemoryRatingStore 是内存实现的 core.RatingStore，测试与单机演示用。
// Kafka 摄入消费者在单机模式下也写到这里。
type MemoryRatingStore struct {
	mu      sync.RWMutex
	ratings []core.Rating
}

func NewMemoryRatingStore(seed ...core.Rating) *MemoryRatingStore {
	s := &MemoryRatingStore{}
	s.ratings = append(s.ratings, seed...)
	return s
}

// Append 追加一条观测（摄入链路写入口）。
func (s *MemoryRatingStore) Append(r core.Rating) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings = append(s.ratings, r)
}

func (s *MemoryRatingStore) All(ctx context.Context) ([]core.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Rating, len(s.ratings))
	copy(out, s.ratings)
	// 与 Postgres 实现保持同样的输入序：(user_id, item_id) 升序
	sort.Slice(out, func(a, b int) bool {
		if out[a].UserID != out[b].UserID {
			return out[a].UserID < out[b].UserID
		}
		return out[a].ItemID < out[b].ItemID
	})
	return out, nil
}

func (s *MemoryRatingStore) Since(ctx context.Context, watermark time.Time) ([]core.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Rating
	for _, r := range s.ratings {
		if r.ObservedAt.After(watermark) {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ core.RatingStore = (*MemoryRatingStore)(nil)
