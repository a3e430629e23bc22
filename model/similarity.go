package model

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Neighbor 是相似度表中的一条邻居记录。
type Neighbor struct {
	ItemID int64   `json:"item_id"`
	Sim    float64 `json:"sim"`    // 余弦相似度，(0,1]（只保留正相似）
	Common int     `json:"common"` // 共同评分用户数
}

// SimTable 物品 -> 按相似度降序的邻居列表（截断到 TopN）。
// 不变式：sim(i,j) == sim(j,i)；自相似不入表。
type SimTable map[int64][]Neighbor

// Neighbors 返回某物品的邻居列表，无共同评分用户的物品得到空列表。
func (t SimTable) Neighbors(itemID int64) []Neighbor {
	return t[itemID]
}

type pairKey struct{ a, b int64 } // a < b

type pairAcc struct {
	dot    float64
	common int
}

// BuildSimilarity 计算物品两两余弦相似度（基于共同评分用户，评分先按用户均值中心化）。
//
// 算法：按 用户->已评物品 倒排累加点积，避免 O(items²) 全扫描；
// 共同评分用户数低于 minCoRaters 的物品对视为相似度 0 并省略；
// 每个物品只保留 TopN 邻居，排序为相似度降序、并列取较小物品 ID。
//
// 并行：用户按升序切成 shards 个连续分片并发累加，再按分片序合并，
// 保证相同输入必然得到逐位相同的结果（浮点求和顺序固定）。
func BuildSimilarity(ctx context.Context, m *RatingMatrix, minCoRaters, topN, shards int) (SimTable, error) {
	if minCoRaters <= 0 {
		minCoRaters = 2
	}
	if topN <= 0 {
		topN = 50
	}
	if shards <= 0 {
		shards = 1
	}

	userIDs := m.SortedUserIDs()
	if len(userIDs) == 0 {
		return SimTable{}, nil
	}
	if shards > len(userIDs) {
		shards = len(userIDs)
	}

	// 每用户中心化评分 + 物品范数（顺序遍历，确定性）
	centered := make(map[int64][]itemRating, len(userIDs))
	norms := make(map[int64]float64)
	for _, uid := range userIDs {
		ratings := m.Users[uid]
		if len(ratings) == 0 {
			continue
		}
		var mean float64
		for _, v := range ratings {
			mean += v
		}
		mean /= float64(len(ratings))

		items := make([]itemRating, 0, len(ratings))
		for itemID, v := range ratings {
			items = append(items, itemRating{itemID: itemID, rc: v - mean})
		}
		sort.Slice(items, func(a, b int) bool { return items[a].itemID < items[b].itemID })
		centered[uid] = items
		for _, ir := range items {
			norms[ir.itemID] += ir.rc * ir.rc
		}
	}

	// 分片并发累加点积
	chunkAccs := make([]map[pairKey]pairAcc, shards)
	eg, gctx := errgroup.WithContext(ctx)
	chunk := (len(userIDs) + shards - 1) / shards
	for s := 0; s < shards; s++ {
		s := s
		lo := s * chunk
		hi := lo + chunk
		if hi > len(userIDs) {
			hi = len(userIDs)
		}
		eg.Go(func() error {
			acc := make(map[pairKey]pairAcc)
			for _, uid := range userIDs[lo:hi] {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				items := centered[uid]
				for a := 0; a < len(items); a++ {
					for b := a + 1; b < len(items); b++ {
						k := pairKey{items[a].itemID, items[b].itemID}
						p := acc[k]
						p.dot += items[a].rc * items[b].rc
						p.common++
						acc[k] = p
					}
				}
			}
			chunkAccs[s] = acc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 按分片序合并，保持浮点加法顺序固定
	total := make(map[pairKey]pairAcc)
	for _, acc := range chunkAccs {
		for k, p := range acc {
			t := total[k]
			t.dot += p.dot
			t.common += p.common
			total[k] = t
		}
	}

	table := make(SimTable)
	for k, p := range total {
		if p.common < minCoRaters {
			continue
		}
		ni, nj := norms[k.a], norms[k.b]
		if ni <= 0 || nj <= 0 {
			continue
		}
		sim := p.dot / (math.Sqrt(ni) * math.Sqrt(nj))
		if sim <= 0 {
			continue
		}
		table[k.a] = append(table[k.a], Neighbor{ItemID: k.b, Sim: sim, Common: p.common})
		table[k.b] = append(table[k.b], Neighbor{ItemID: k.a, Sim: sim, Common: p.common})
	}

	for itemID, lst := range table {
		sort.Slice(lst, func(a, b int) bool {
			if lst[a].Sim != lst[b].Sim {
				return lst[a].Sim > lst[b].Sim
			}
			return lst[a].ItemID < lst[b].ItemID
		})
		if len(lst) > topN {
			lst = lst[:topN]
		}
		table[itemID] = lst
	}

	return table, nil
}

type itemRating struct {
	itemID int64
	rc     float64 // 中心化后的评分
}
