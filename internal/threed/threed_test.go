package threed

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/spotengine/internal/models"
	"github.com/shopspring/decimal"
)

type fakeEventStore struct {
	upcoming []models.EconomicEvent
	recent   []models.EconomicEvent
}

func (f fakeEventStore) Upcoming(ctx context.Context, now time.Time, within time.Duration, limit int) ([]models.EconomicEvent, error) {
	return f.upcoming, nil
}

func (f fakeEventStore) Recent(ctx context.Context, now time.Time, since time.Duration, limit int) ([]models.EconomicEvent, error) {
	return f.recent, nil
}

func flatCloses(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start
	}
	return out
}

func TestAnalyzeFundamentalPostEventWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := fakeEventStore{
		recent: []models.EconomicEvent{{
			EventType:             models.EventCPI,
			ReleaseTime:           now.Add(-10 * time.Minute),
			Impact:                models.ImpactHigh,
			DeviationFromForecast: decimal.NewFromFloat(1.2),
			HasActual:             true,
		}},
	}
	res, err := AnalyzeFundamental(context.Background(), store, now)
	if err != nil {
		t.Fatalf("AnalyzeFundamental: %v", err)
	}
	if !res.PostEventWindow {
		t.Fatalf("expected post-event window true")
	}
	if res.EventImpact != AlignBullish {
		t.Fatalf("expected bullish event impact, got %v", res.EventImpact)
	}
}

// TestPreEventGuardRejectsWithinAvoidWindow: a HIGH-impact CPI release
// scheduled 20 minutes out must invalidate the confluence call even if
// relational/technical dimensions align.
func TestPreEventGuardRejectsWithinAvoidWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := fakeEventStore{
		upcoming: []models.EconomicEvent{{
			EventType:   models.EventCPI,
			ReleaseTime: now.Add(20 * time.Minute),
			Impact:      models.ImpactHigh,
		}},
	}
	prices := map[string]float64{"BTCUSDT": 60000, "ETHUSDT": 4200}
	closesByTF := map[string][]float64{
		"1m": append(flatCloses(25, 100), 105),
	}

	sig, err := Analyze(context.Background(), prices, store, closesByTF, now, 20)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.IsValid {
		t.Fatalf("expected invalid signal inside the pre-event avoid window")
	}
	if sig.Fundamental.TimeToNextEvent == nil || *sig.Fundamental.TimeToNextEvent >= preEventAvoidMinutes*time.Minute {
		t.Fatalf("expected TimeToNextEvent under the avoid window, got %v", sig.Fundamental.TimeToNextEvent)
	}
}

func TestAnalyzeRelationalThresholds(t *testing.T) {
	bullish := AnalyzeRelational(map[string]float64{"BTCUSDT": 50000, "ETHUSDT": 3500})
	if bullish.CryptoHealth != AlignBullish {
		t.Fatalf("expected bullish crypto health for ratio 0.07, got %v", bullish.CryptoHealth)
	}
	bearish := AnalyzeRelational(map[string]float64{"BTCUSDT": 50000, "ETHUSDT": 1500})
	if bearish.CryptoHealth != AlignBearish {
		t.Fatalf("expected bearish crypto health for ratio 0.03, got %v", bearish.CryptoHealth)
	}
	missing := AnalyzeRelational(map[string]float64{"BTCUSDT": 50000})
	if missing.CryptoHealth != AlignNeutral {
		t.Fatalf("expected neutral crypto health when a leg is missing")
	}
}

func TestAnalyzeTechnicalRequiresFullWindow(t *testing.T) {
	res := AnalyzeTechnical(map[string][]float64{"1m": {1, 2, 3}}, 20)
	if res.PrimaryTrend != AlignNeutral {
		t.Fatalf("expected neutral primary trend when no timeframe has enough bars")
	}
}

func TestCalculateConfluenceRequiresMajority(t *testing.T) {
	align, count := calculateConfluence([]Alignment{AlignBullish, AlignBearish})
	if align != AlignConflicting || count != 0 {
		t.Fatalf("expected conflicting 0, got %v %d", align, count)
	}
	align, count = calculateConfluence([]Alignment{AlignBullish, AlignBullish, AlignBearish})
	if align != AlignBullish || count != 2 {
		t.Fatalf("expected bullish 2, got %v %d", align, count)
	}
}
