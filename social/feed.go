// Package social 提供好友评分信号的读取与聚合。
//
// 数据来源是外部社交图谱在存储中的投影：
//   - social:friends:<user_id>  JSON []int64，已接受的好友列表
//   - social:ratings:<friend_id> Hash，field=item_id value=rating
//
// 读取失败或超时由上层降级处理，本包不做重试。
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rushteam/movierec/core"
)

// FriendsKey 返回用户好友列表的存储 key。
func FriendsKey(userID int64) string {
	return fmt.Sprintf("social:friends:%d", userID)
}

// RatingsKey 返回好友评分 Hash 的存储 key。
func RatingsKey(friendID int64) string {
	return fmt.Sprintf("social:ratings:%d", friendID)
}

// StoreFeed 从 KeyValueStore 读取好友动态，实现 core.FriendFeed。
type StoreFeed struct {
	Store core.KeyValueStore
}

func NewStoreFeed(store core.KeyValueStore) *StoreFeed {
	return &StoreFeed{Store: store}
}

func (f *StoreFeed) FriendRatings(ctx context.Context, userID int64) ([]core.FriendRating, error) {
	raw, err := f.Store.Get(ctx, FriendsKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil // 没有好友不算错误
		}
		return nil, core.NewDomainError(core.ModuleSocial, core.ErrorCodeUpstreamTimeout,
			"social: load friend list failed: "+err.Error())
	}

	var friends []int64
	if err := json.Unmarshal(raw, &friends); err != nil {
		return nil, core.NewDomainError(core.ModuleSocial, core.ErrorCodeDataIntegrity,
			"social: malformed friend list: "+err.Error())
	}

	var out []core.FriendRating
	for _, fid := range friends {
		fields, err := f.Store.HGetAll(ctx, RatingsKey(fid))
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, core.NewDomainError(core.ModuleSocial, core.ErrorCodeUpstreamTimeout,
				fmt.Sprintf("social: load ratings of friend %d failed: %v", fid, err))
		}
		for field, val := range fields {
			itemID, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				continue // 脏字段跳过，不污染信号
			}
			rating, err := strconv.ParseFloat(string(val), 64)
			if err != nil {
				continue
			}
			out = append(out, core.FriendRating{FriendID: fid, ItemID: itemID, Rating: rating})
		}
	}
	return out, nil
}

// StaticFeed 是内存实现，用于测试与单机演示。
type StaticFeed struct {
	Ratings map[int64][]core.FriendRating // user_id -> 好友评分
}

func NewStaticFeed() *StaticFeed {
	return &StaticFeed{Ratings: make(map[int64][]core.FriendRating)}
}

// Put 追加一条好友评分。
func (f *StaticFeed) Put(userID int64, r core.FriendRating) {
	f.Ratings[userID] = append(f.Ratings[userID], r)
}

func (f *StaticFeed) FriendRatings(ctx context.Context, userID int64) ([]core.FriendRating, error) {
	rs := f.Ratings[userID]
	out := make([]core.FriendRating, len(rs))
	copy(out, rs)
	return out, nil
}

// Signal 是某个物品上聚合后的好友信号。
type Signal struct {
	ItemID   int64   // 物品 ID
	Count    int     // 评过分的好友数
	Positive int     // 好评（>= 正向阈值）的好友数
	Mean     float64 // 好友评分均值
}

// Aggregate 按物品聚合好友评分。
// positive 是好评阈值（与引擎配置的 PositiveRating 一致）。
func Aggregate(ratings []core.FriendRating, positive float64) map[int64]Signal {
	sums := make(map[int64]float64)
	out := make(map[int64]Signal)
	for _, r := range ratings {
		s := out[r.ItemID]
		s.ItemID = r.ItemID
		s.Count++
		if r.Rating >= positive {
			s.Positive++
		}
		sums[r.ItemID] += r.Rating
		out[r.ItemID] = s
	}
	for id, s := range out {
		s.Mean = sums[id] / float64(s.Count)
		out[id] = s
	}
	return out
}
