package market

import "time"

// Direction represents the side of a trade setup
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Opposite returns the other direction
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// Candle is the canonical fixed-field candle consumed by all analysis code.
// Feed adapters convert their wire formats into this type at the ingestion
// boundary; nothing downstream sees raw exchange records.
type Candle struct {
	Symbol    string
	Timeframe string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	OpenTime  time.Time
	CloseTime time.Time
	Closed    bool
}

// Body returns the absolute open-to-close distance
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low distance
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// BodyRatio returns body size as a fraction of total range
func (c Candle) BodyRatio() float64 {
	r := c.Range()
	if r == 0 {
		return 0
	}
	return c.Body() / r
}

// UpperWick returns the distance from the body top to the high
func (c Candle) UpperWick() float64 {
	if c.Close >= c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

// LowerWick returns the distance from the body bottom to the low
func (c Candle) LowerWick() float64 {
	if c.Close >= c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// Midpoint returns the middle of the candle body
func (c Candle) Midpoint() float64 {
	return (c.Open + c.Close) / 2
}

// IsBullish reports whether the candle closed above its open
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}
