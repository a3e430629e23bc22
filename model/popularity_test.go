package model

import (
	"math"
	"testing"
	"time"

	"github.com/rushteam/movierec/core"
)

func TestBuildPopularity_ScoreFormula(t *testing.T) {
	now := time.Now().UTC()
	m := buildTestMatrix(t, []core.Rating{
		obs(1, 10, 5.0, now),
		obs(2, 10, 4.0, now),
		obs(3, 10, 4.5, now),
		obs(1, 20, 3.0, now),
	})

	pt := BuildPopularity(m)

	rec, ok := pt.Records[10]
	if !ok {
		t.Fatal("missing record for item 10")
	}
	if rec.Count != 3 {
		t.Fatalf("count = %d, want 3", rec.Count)
	}
	wantMean := (5.0 + 4.0 + 4.5) / 3
	if math.Abs(rec.Mean-wantMean) > 1e-12 {
		t.Fatalf("mean = %v, want %v", rec.Mean, wantMean)
	}
	wantScore := wantMean * math.Log1p(3)
	if math.Abs(rec.Score-wantScore) > 1e-12 {
		t.Fatalf("score = %v, want %v", rec.Score, wantScore)
	}
	if pt.MaxScore != rec.Score {
		t.Fatalf("max score = %v, want %v", pt.MaxScore, rec.Score)
	}
}

func TestBuildPopularity_RankedOrder(t *testing.T) {
	now := time.Now().UTC()
	// 物品 30 与 40 同分同量，必须按物品 ID 升序并列
	m := buildTestMatrix(t, []core.Rating{
		obs(1, 10, 5.0, now), obs(2, 10, 5.0, now), obs(3, 10, 5.0, now),
		obs(1, 40, 4.0, now), obs(2, 40, 4.0, now),
		obs(3, 30, 4.0, now), obs(4, 30, 4.0, now),
		obs(1, 50, 2.0, now),
	})

	pt := BuildPopularity(m)

	want := []int64{10, 30, 40, 50}
	if len(pt.Ranked) != len(want) {
		t.Fatalf("ranked size = %d, want %d", len(pt.Ranked), len(want))
	}
	for i, id := range want {
		if pt.Ranked[i].ItemID != id {
			t.Errorf("ranked[%d] = %d, want %d", i, pt.Ranked[i].ItemID, id)
		}
	}
	for i := 1; i < len(pt.Ranked); i++ {
		if pt.Ranked[i].Score > pt.Ranked[i-1].Score {
			t.Errorf("ranked[%d].Score %v > ranked[%d].Score %v", i, pt.Ranked[i].Score, i-1, pt.Ranked[i-1].Score)
		}
	}
}

func TestPopTable_Normalized(t *testing.T) {
	pt := &PopTable{MaxScore: 8.0}
	cases := []struct {
		name  string
		score float64
		want  float64
	}{
		{"mid", 4.0, 0.5},
		{"max", 8.0, 1.0},
		{"above max clamps", 9.0, 1.0},
		{"negative clamps", -1.0, 0.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := pt.Normalized(c.score); got != c.want {
				t.Fatalf("Normalized(%v) = %v, want %v", c.score, got, c.want)
			}
		})
	}

	empty := &PopTable{}
	if got := empty.Normalized(3.0); got != 0 {
		t.Fatalf("empty table Normalized = %v, want 0", got)
	}
}

func TestPopRecord_Trending(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	cases := []struct {
		name string
		last time.Time
		want bool
	}{
		{"inside window", now.Add(-24 * time.Hour), true},
		{"exactly at boundary", now.Add(-window), true},
		{"outside window", now.Add(-window - time.Second), false},
		{"zero timestamp", time.Time{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := PopRecord{ItemID: 1, LastRatedAt: c.last}
			if got := r.Trending(now, window); got != c.want {
				t.Fatalf("Trending = %v, want %v", got, c.want)
			}
		})
	}

	r := PopRecord{ItemID: 1, LastRatedAt: now}
	if r.Trending(now, 0) {
		t.Fatal("zero window must not be trending")
	}
}
