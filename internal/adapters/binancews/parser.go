package binancews

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"alphaTransformer/internal/domain"
)

// subscribeRequest is the batched kline subscription sent per symbol.
type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// frameProbe captures just enough of an inbound frame to classify it.
// A combined-stream kline event carries "stream"+"data"; subscription
// acknowledgments carry "result"+"id"; error envelopes carry "error".
type frameProbe struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
	Error  json.RawMessage `json:"error"`
}

type frameKind int

const (
	frameUnknown frameKind = iota
	frameKline
	frameAck
	frameError
)

func classifyFrame(raw []byte) (frameKind, *frameProbe, error) {
	var probe frameProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return frameUnknown, nil, fmt.Errorf("decoding frame envelope: %w", err)
	}
	switch {
	case probe.Stream != "" && len(probe.Data) > 0:
		return frameKline, &probe, nil
	case probe.Error != nil:
		return frameError, &probe, nil
	case probe.Result != nil:
		return frameAck, &probe, nil
	default:
		return frameUnknown, &probe, nil
	}
}

// wsKlineEvent is the payload under "data" of a combined-stream kline frame.
type wsKlineEvent struct {
	EventType string  `json:"e"`
	EventTime int64   `json:"E"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

// wsKline mirrors the exchange "k" object. Prices and volumes arrive as
// strings and are parsed field by field.
type wsKline struct {
	StartTime           int64  `json:"t"`
	EndTime             int64  `json:"T"`
	Symbol              string `json:"s"`
	Interval            string `json:"i"`
	Open                string `json:"o"`
	High                string `json:"h"`
	Low                 string `json:"l"`
	Close               string `json:"c"`
	Volume              string `json:"v"`
	QuoteVolume         string `json:"q"`
	TradeCount          int64  `json:"n"`
	TakerBuyBaseVolume  string `json:"V"`
	TakerBuyQuoteVolume string `json:"Q"`
	IsFinal             bool   `json:"x"`
}

// translateKlineFrame validates and converts a combined-stream kline payload
// into the domain model.
func translateKlineFrame(data json.RawMessage) (*domain.Kline, error) {
	var event wsKlineEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decoding kline event: %w", err)
	}
	if event.EventType != "" && event.EventType != "kline" {
		return nil, fmt.Errorf("unexpected event type %q", event.EventType)
	}

	k := event.Kline
	symbol := k.Symbol
	if symbol == "" {
		symbol = event.Symbol
	}
	if symbol == "" {
		return nil, errors.New("kline event is missing a symbol")
	}
	if k.Interval == "" {
		return nil, errors.New("kline event is missing an interval")
	}

	open, err := parsePrice("open", k.Open)
	if err != nil {
		return nil, err
	}
	high, err := parsePrice("high", k.High)
	if err != nil {
		return nil, err
	}
	low, err := parsePrice("low", k.Low)
	if err != nil {
		return nil, err
	}
	closePrice, err := parsePrice("close", k.Close)
	if err != nil {
		return nil, err
	}
	volume, err := parsePrice("volume", k.Volume)
	if err != nil {
		return nil, err
	}
	quoteVolume, err := parsePrice("quote volume", k.QuoteVolume)
	if err != nil {
		return nil, err
	}
	takerBase, err := parsePrice("taker buy base volume", k.TakerBuyBaseVolume)
	if err != nil {
		return nil, err
	}
	takerQuote, err := parsePrice("taker buy quote volume", k.TakerBuyQuoteVolume)
	if err != nil {
		return nil, err
	}

	return &domain.Kline{
		OpenTime:            time.UnixMilli(k.StartTime),
		CloseTime:           time.UnixMilli(k.EndTime),
		Symbol:              symbol,
		Interval:            k.Interval,
		Open:                open,
		High:                high,
		Low:                 low,
		Close:               closePrice,
		Volume:              volume,
		QuoteVolume:         quoteVolume,
		TradeCount:          k.TradeCount,
		TakerBuyBaseVolume:  takerBase,
		TakerBuyQuoteVolume: takerQuote,
		IsFinal:             k.IsFinal,
	}, nil
}

func parsePrice(field, value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("kline event is missing %s", field)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s '%s': %w", field, value, err)
	}
	return f, nil
}

// streamName builds the combined-stream name for a symbol/interval pair.
func streamName(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}
