package analysis

import (
	"testing"

	"swing-signal-bot/internal/market"
)

func TestDetectBullishFVG(t *testing.T) {
	detector := NewFVGDetector(0.001)

	// Gap down: the first candle's low stays above the third candle's
	// high, leaving demand below price.
	candles := []market.Candle{
		{Open: 105, High: 106, Low: 100, Close: 102},
		{Open: 102, High: 103, Low: 95, Close: 96},
		{Open: 96, High: 99, Low: 92, Close: 94},
	}

	gaps := detector.Detect(candles)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}

	g := gaps[0]
	if !g.Bullish {
		t.Error("expected bullish gap")
	}
	if g.Bottom != 99 {
		t.Errorf("expected bottom 99, got %f", g.Bottom)
	}
	if g.Top != 100 {
		t.Errorf("expected top 100, got %f", g.Top)
	}
	if g.Index != 1 {
		t.Errorf("expected middle candle index 1, got %d", g.Index)
	}
}

func TestDetectBearishFVG(t *testing.T) {
	detector := NewFVGDetector(0.001)

	// Gap up: the first candle's high stays below the third candle's low.
	candles := []market.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 105, Low: 97, Close: 104},
		{Open: 104, High: 108, Low: 101, Close: 106},
	}

	gaps := detector.Detect(candles)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}

	g := gaps[0]
	if g.Bullish {
		t.Error("expected bearish gap")
	}
	if g.Bottom != 100 {
		t.Errorf("expected bottom 100, got %f", g.Bottom)
	}
	if g.Top != 101 {
		t.Errorf("expected top 101, got %f", g.Top)
	}
}

func TestNoFVGForOverlappingCandles(t *testing.T) {
	detector := NewFVGDetector(0.001)

	candles := []market.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 102, Low: 97, Close: 100},
		{Open: 100, High: 104, Low: 99, Close: 102},
	}

	if gaps := detector.Detect(candles); len(gaps) != 0 {
		t.Errorf("expected 0 gaps for overlapping candles, got %d", len(gaps))
	}
}

func TestFVGBelowMinimumSizeIgnored(t *testing.T) {
	// 0.05% gap against the 0.1% minimum.
	detector := NewFVGDetector(0.001)

	candles := []market.Candle{
		{Open: 9990, High: 10000, Low: 9980, Close: 9995},
		{Open: 9995, High: 10010, Low: 9994, Close: 10008},
		{Open: 10008, High: 10015, Low: 10005, Close: 10012},
	}

	if gaps := detector.Detect(candles); len(gaps) != 0 {
		t.Fatalf("expected no gaps, got %d", len(gaps))
	}
}

func TestFVGFilledByCloseThroughFarSide(t *testing.T) {
	detector := NewFVGDetector(0.001)

	candles := []market.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 105, Low: 97, Close: 104},
		{Open: 104, High: 108, Low: 101, Close: 106},
		// Close below the gap bottom fills the bearish gap.
		{Open: 106, High: 107, Low: 98, Close: 99},
	}

	if gaps := detector.Detect(candles); len(gaps) != 0 {
		t.Fatalf("expected gap to be filled, got %d open", len(gaps))
	}
}

func TestFVGWickIntoZoneDoesNotFill(t *testing.T) {
	detector := NewFVGDetector(0.001)

	candles := []market.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 105, Low: 97, Close: 104},
		{Open: 104, High: 108, Low: 101, Close: 106},
		// Wick pierces the zone but the close holds above the bottom.
		{Open: 106, High: 107, Low: 100.2, Close: 103},
	}

	gaps := detector.Detect(candles)
	if len(gaps) != 1 {
		t.Fatalf("expected gap to stay open, got %d", len(gaps))
	}
}

func TestFVGInZone(t *testing.T) {
	g := FVG{Top: 105, Bottom: 100, Bullish: true}

	tests := []struct {
		price float64
		want  bool
	}{
		{102.5, true},
		{100, true},
		{105, true},
		{99, false},
		{106, false},
	}

	for _, tt := range tests {
		if got := g.InZone(tt.price); got != tt.want {
			t.Errorf("InZone(%f) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestFVGScoreRetest(t *testing.T) {
	detector := NewFVGDetector(0.001)

	// A gap up is a bearish imbalance, so the retest from above feeds
	// short setups only.
	candles := []market.Candle{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 105, Low: 97, Close: 104},
		{Open: 104, High: 108, Low: 101, Close: 106},
		// Pullback trading into the zone without closing through it.
		{Open: 106, High: 106.5, Low: 100.5, Close: 102},
	}

	if got := detector.Score(candles, market.Short); got != 70 {
		t.Errorf("expected retest score 70, got %d", got)
	}
	if got := detector.Score(candles, market.Long); got != 0 {
		t.Errorf("expected no score against the gap direction, got %d", got)
	}
}
