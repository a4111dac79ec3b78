package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"swing-signal-bot/internal/market"
)

const (
	defaultRESTURL = "https://api.binance.com"
	defaultWSURL   = "wss://stream.binance.com:9443"

	reconnectDelay = 3 * time.Second
)

// BinanceFeed implements Stream, Backfiller and UniverseSource against the
// Binance spot API: REST klines for warmup, 24h tickers for universe
// rotation, and the combined kline websocket streams for live updates.
type BinanceFeed struct {
	restURL    string
	wsURL      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewBinanceFeed creates a feed client. Empty URLs select the production
// endpoints.
func NewBinanceFeed(restURL, wsURL string, logger zerolog.Logger) *BinanceFeed {
	if restURL == "" {
		restURL = defaultRESTURL
	}
	if wsURL == "" {
		wsURL = defaultWSURL
	}
	return &BinanceFeed{
		restURL:    restURL,
		wsURL:      wsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "feed").Logger(),
	}
}

// Backfill fetches closed candles, oldest first. The most recent kline in
// the response is still forming and is dropped.
func (f *BinanceFeed) Backfill(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit+1))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.restURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read klines response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines API error: %s", string(body))
	}

	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse klines: %w", err)
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		candles = append(candles, market.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  time.UnixMilli(int64(k[0].(float64))).UTC(),
			Open:      parseFloat(k[1]),
			High:      parseFloat(k[2]),
			Low:       parseFloat(k[3]),
			Close:     parseFloat(k[4]),
			Volume:    parseFloat(k[5]),
			CloseTime: time.UnixMilli(int64(k[6].(float64))).UTC(),
			Closed:    true,
		})
	}

	// The last kline covers the current open window.
	if len(candles) > 0 {
		candles = candles[:len(candles)-1]
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// quoteAsset filters the rotation universe to one quote currency.
const quoteAsset = "USDT"

type tickerStats struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// TopVolumeSymbols returns the top quote-volume symbols for the rotation
// universe, highest volume first.
func (f *BinanceFeed) TopVolumeSymbols(ctx context.Context, limit int) ([]string, error) {
	endpoint := f.restURL + "/api/v3/ticker/24hr"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch 24h tickers: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ticker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker API error: %s", string(body))
	}

	var stats []tickerStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("parse tickers: %w", err)
	}

	type ranked struct {
		symbol string
		volume float64
	}
	candidates := make([]ranked, 0, len(stats))
	for _, s := range stats {
		if !strings.HasSuffix(s.Symbol, quoteAsset) {
			continue
		}
		vol := parseFloatString(s.QuoteVolume)
		if vol <= 0 {
			continue
		}
		candidates = append(candidates, ranked{symbol: s.Symbol, volume: vol})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].volume > candidates[j].volume
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.symbol
	}
	return out, nil
}

// combinedKlineEvent is the combined-stream envelope for kline updates.
type combinedKlineEvent struct {
	Data struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		Kline     struct {
			OpenTime  int64  `json:"t"`
			CloseTime int64  `json:"T"`
			Interval  string `json:"i"`
			Open      string `json:"o"`
			Close     string `json:"c"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// Subscribe connects to the combined kline streams and invokes handler for
// every update. Lost connections are re-dialed until ctx is cancelled.
func (f *BinanceFeed) Subscribe(ctx context.Context, symbols []string, timeframes []string, handler func(Event)) error {
	streams := make([]string, 0, len(symbols)*len(timeframes))
	for _, s := range symbols {
		for _, tf := range timeframes {
			streams = append(streams, strings.ToLower(s)+"@kline_"+tf)
		}
	}
	wsURL := f.wsURL + "/stream?streams=" + strings.Join(streams, "/")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			f.logger.Warn().Err(err).Msg("websocket dial failed, retrying")
			select {
			case <-time.After(reconnectDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		f.logger.Info().Int("streams", len(streams)).Msg("websocket connected")
		f.readLoop(ctx, conn, handler)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn().Msg("websocket connection lost, reconnecting")
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *BinanceFeed) readLoop(ctx context.Context, conn *websocket.Conn, handler func(Event)) {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.Info().Msg("websocket closed")
			} else if ctx.Err() == nil {
				f.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var ev combinedKlineEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			f.logger.Warn().Err(err).Msg("malformed stream message")
			continue
		}
		if ev.Data.EventType != "kline" {
			continue
		}

		k := ev.Data.Kline
		handler(Event{Candle: market.Candle{
			Symbol:    ev.Data.Symbol,
			Timeframe: k.Interval,
			Open:      parseFloatString(k.Open),
			High:      parseFloatString(k.High),
			Low:       parseFloatString(k.Low),
			Close:     parseFloatString(k.Close),
			Volume:    parseFloatString(k.Volume),
			OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
			CloseTime: time.UnixMilli(k.CloseTime).UTC(),
			Closed:    k.Closed,
		}})
	}
}

func parseFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	return parseFloatString(s)
}

func parseFloatString(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
