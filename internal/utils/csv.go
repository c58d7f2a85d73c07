package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"alphaTransformer/internal/domain"
)

func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{
		"open_time", "close_time", "symbol", "interval",
		"open", "high", "low", "close",
		"volume", "quote_volume", "trade_count",
		"taker_buy_base_volume", "taker_buy_quote_volume", "is_final",
	})

	for _, k := range klines {
		writer.Write([]string{
			k.OpenTime.Format(time.RFC3339),
			k.CloseTime.Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatFloat(k.Volume, 'f', -1, 64),
			strconv.FormatFloat(k.QuoteVolume, 'f', -1, 64),
			strconv.FormatInt(k.TradeCount, 10),
			strconv.FormatFloat(k.TakerBuyBaseVolume, 'f', -1, 64),
			strconv.FormatFloat(k.TakerBuyQuoteVolume, 'f', -1, 64),
			strconv.FormatBool(k.IsFinal),
		})
	}
	return writer.Error()
}
