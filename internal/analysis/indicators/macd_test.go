package indicators

import (
	"context"
	"testing"
)

func TestMACD_Values(t *testing.T) {
	macd := NewMACD(MACDConfig{})

	t.Run("flat series produces zero line and histogram", func(t *testing.T) {
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = 100
		}
		line, signal, hist, err := macd.Values(context.Background(), klinesFromCloses(closes...))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		for name, v := range map[string]float64{"line": line, "signal": signal, "histogram": hist} {
			if v > 1e-9 || v < -1e-9 {
				t.Errorf("Expected zero %s, got %f", name, v)
			}
		}
	})

	t.Run("rising series produces positive line", func(t *testing.T) {
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		line, _, _, err := macd.Values(context.Background(), klinesFromCloses(closes...))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if line <= 0 {
			t.Errorf("Expected positive MACD line on a rising series, got %f", line)
		}
	})

	t.Run("fewer points than signal warm-up", func(t *testing.T) {
		closes := make([]float64, 33)
		for i := range closes {
			closes[i] = float64(i)
		}
		if _, _, _, err := macd.Values(context.Background(), klinesFromCloses(closes...)); err == nil {
			t.Error("Expected error with 33 closes")
		}
		// The line alone is available once the slow EMA forms.
		if _, err := macd.Line(context.Background(), klinesFromCloses(closes...)); err != nil {
			t.Errorf("Expected MACD line at 33 closes, got error: %v", err)
		}
	})

	t.Run("fewer points than slow period", func(t *testing.T) {
		closes := make([]float64, 25)
		for i := range closes {
			closes[i] = float64(i)
		}
		if _, err := macd.Line(context.Background(), klinesFromCloses(closes...)); err == nil {
			t.Error("Expected error with 25 closes")
		}
	})
}

func TestMACD_Defaults(t *testing.T) {
	macd := NewMACD(MACDConfig{})
	if got := macd.RequiredDataPoints(); got != 34 {
		t.Errorf("Expected 34 required points for 26/9, got %d", got)
	}
}
