// Package meta 提供物品元数据（标题/类型）服务与用户类型偏好计算。
// 元数据只服务解释生成（genre_match 因子与可读文案），缺失时推荐主链路不受影响。
package meta

import (
	"context"
	"sort"
)

// ItemMeta 是单个物品的元数据。
type ItemMeta struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	Year   int      `json:"year,omitempty"`
	Genres []string `json:"genres"` // 已统一为小写
}

// Service 是元数据的读接口。
type Service interface {
	// Title 返回物品标题，不存在时返回 ("", false)
	Title(itemID int64) (string, bool)

	// Genres 返回物品类型列表（小写），不存在时返回 nil
	Genres(itemID int64) []string
}

// Loader 按物品 ID 批量加载元数据，由不同后端（内存/Store/Feast）实现。
type Loader interface {
	Name() string
	Load(ctx context.Context, ids []int64) (map[int64]ItemMeta, error)
}

// MemoryService 是内存元数据表，测试与小数据集直接使用。
type MemoryService struct {
	items map[int64]ItemMeta
}

// NewMemoryService 从元数据表构建服务。
func NewMemoryService(items map[int64]ItemMeta) *MemoryService {
	if items == nil {
		items = make(map[int64]ItemMeta)
	}
	return &MemoryService{items: items}
}

func (s *MemoryService) Title(itemID int64) (string, bool) {
	m, ok := s.items[itemID]
	if !ok {
		return "", false
	}
	return m.Title, true
}

func (s *MemoryService) Genres(itemID int64) []string {
	return s.items[itemID].Genres
}

// Affinity 从用户评分历史计算类型偏好：
// 取评分达到 positive 阈值的物品，按其类型累计评分权重后归一（和为 1）。
// 纯函数，无随机性。
func Affinity(history map[int64]float64, positive float64, genres func(int64) []string) map[string]float64 {
	raw := make(map[string]float64)
	var total float64
	for itemID, rating := range history {
		if rating < positive {
			continue
		}
		for _, g := range genres(itemID) {
			raw[g] += rating
			total += rating
		}
	}
	if total <= 0 {
		return nil
	}
	for g := range raw {
		raw[g] /= total
	}
	return raw
}

// Overlap 返回物品类型与偏好表的交集（字典序）及其权重和。
func Overlap(itemGenres []string, affinity map[string]float64) ([]string, float64) {
	if len(itemGenres) == 0 || len(affinity) == 0 {
		return nil, 0
	}
	var hit []string
	var weight float64
	for _, g := range itemGenres {
		if w, ok := affinity[g]; ok {
			hit = append(hit, g)
			weight += w
		}
	}
	sort.Strings(hit)
	return hit, weight
}
