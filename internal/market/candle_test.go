package market

import "testing"

func TestCandleGeometry(t *testing.T) {
	bull := Candle{Open: 100, High: 106, Low: 98, Close: 104}

	if got := bull.Body(); got != 4 {
		t.Errorf("expected body 4, got %v", got)
	}
	if got := bull.Range(); got != 8 {
		t.Errorf("expected range 8, got %v", got)
	}
	if got := bull.BodyRatio(); got != 0.5 {
		t.Errorf("expected body ratio 0.5, got %v", got)
	}
	if got := bull.UpperWick(); got != 2 {
		t.Errorf("expected upper wick 2, got %v", got)
	}
	if got := bull.LowerWick(); got != 2 {
		t.Errorf("expected lower wick 2, got %v", got)
	}
	if got := bull.Midpoint(); got != 102 {
		t.Errorf("expected midpoint 102, got %v", got)
	}
	if !bull.IsBullish() || bull.IsBearish() {
		t.Error("expected bullish candle")
	}

	bear := Candle{Open: 104, High: 106, Low: 98, Close: 100}
	if got := bear.UpperWick(); got != 2 {
		t.Errorf("expected upper wick 2, got %v", got)
	}
	if got := bear.LowerWick(); got != 2 {
		t.Errorf("expected lower wick 2, got %v", got)
	}
	if !bear.IsBearish() || bear.IsBullish() {
		t.Error("expected bearish candle")
	}
}

func TestCandleZeroRange(t *testing.T) {
	flat := Candle{Open: 100, High: 100, Low: 100, Close: 100}
	if got := flat.BodyRatio(); got != 0 {
		t.Errorf("expected body ratio 0 on zero range, got %v", got)
	}
	if flat.IsBullish() || flat.IsBearish() {
		t.Error("flat candle is neither bullish nor bearish")
	}
}

func TestDirectionOpposite(t *testing.T) {
	if Long.Opposite() != Short {
		t.Error("expected short")
	}
	if Short.Opposite() != Long {
		t.Error("expected long")
	}
}
