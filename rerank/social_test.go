package rerank

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/social"
)

type failingFeed struct{}

func (failingFeed) FriendRatings(context.Context, int64) ([]core.FriendRating, error) {
	return nil, core.NewDomainError(core.ModuleSocial, core.ErrorCodeUnavailable, "feed down")
}

type slowFeed struct{}

func (slowFeed) FriendRatings(ctx context.Context, _ int64) ([]core.FriendRating, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func socialItems() []*core.Item {
	a := core.NewItem(10)
	a.Score = 0.8
	b := core.NewItem(20)
	b.Score = 0.6
	return []*core.Item{a, b}
}

func TestSocialBoost_BlendFormula(t *testing.T) {
	cfg := core.DefaultEngineConfig()
	feed := social.NewStaticFeed()
	feed.Put(1, core.FriendRating{FriendID: 7, ItemID: 10, Rating: 5.0})
	feed.Put(1, core.FriendRating{FriendID: 8, ItemID: 10, Rating: 4.0})

	n := &SocialBoostNode{Feed: feed, Cfg: cfg}
	items := socialItems()
	rctx := &core.RecommendContext{UserID: 1, UseSocial: true}
	out, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatal(err)
	}

	w := cfg.SocialWeight
	mean := 4.5
	want := (1-w)*0.8 + w*cfg.Bounds.Scale01(mean)
	if math.Abs(out[0].Score-want) > 1e-12 {
		t.Fatalf("boosted score = %v, want %v", out[0].Score, want)
	}
	if !out[0].HasLabelValue("social", "applied") {
		t.Fatal("boosted item missing social=applied label")
	}
	if cnt, _ := out[0].Meta["social_friend_count"].(int64); cnt != 2 {
		t.Fatalf("social_friend_count = %v, want 2", out[0].Meta["social_friend_count"])
	}
	// 无好友信号的物品分数不变
	if out[1].Score != 0.6 {
		t.Fatalf("untouched item score = %v, want 0.6", out[1].Score)
	}
}

func TestSocialBoost_SkipsWhenDisabled(t *testing.T) {
	feed := social.NewStaticFeed()
	feed.Put(1, core.FriendRating{FriendID: 7, ItemID: 10, Rating: 5.0})
	n := &SocialBoostNode{Feed: feed, Cfg: core.DefaultEngineConfig()}

	items := socialItems()
	rctx := &core.RecommendContext{UserID: 1, UseSocial: false}
	out, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Score != 0.8 || out[1].Score != 0.6 {
		t.Fatal("scores must not change when social is disabled")
	}
}

func TestSocialBoost_DegradesOnError(t *testing.T) {
	n := &SocialBoostNode{Feed: failingFeed{}, Cfg: core.DefaultEngineConfig()}
	items := socialItems()
	rctx := &core.RecommendContext{UserID: 1, UseSocial: true}
	out, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatal("feed failure must degrade, not fail the request")
	}
	if len(out) != 2 || out[0].Score != 0.8 || out[1].Score != 0.6 {
		t.Fatal("items must pass through unchanged on feed failure")
	}
	lbl, ok := rctx.GetLabel("social")
	if !ok || lbl.Value != "degraded" {
		t.Fatalf("request label social = %+v, want degraded", lbl)
	}
}

func TestSocialBoost_DegradesOnTimeout(t *testing.T) {
	n := &SocialBoostNode{Feed: slowFeed{}, Cfg: core.DefaultEngineConfig(), Timeout: 10 * time.Millisecond}
	items := socialItems()
	rctx := &core.RecommendContext{UserID: 1, UseSocial: true}

	start := time.Now()
	out, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatal("feed timeout must degrade, not fail the request")
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout not enforced")
	}
	if len(out) != 2 {
		t.Fatalf("got %d items, want 2", len(out))
	}
	if lbl, ok := rctx.GetLabel("social"); !ok || lbl.Value != "degraded" {
		t.Fatalf("request label social = %+v, want degraded", lbl)
	}
}
