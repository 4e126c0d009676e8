package analysis

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/kpetrou/signalfolio/internal/domain"
)

// Indicator periods. Shorter history degrades only the indicators that need
// more bars than are available; it never fails the whole request.
const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	smaShortPeriod   = 50
	smaLongPeriod    = 200
	stochKPeriod     = 14
	stochSmoothK     = 3
	stochSmoothD     = 3
	volumeAvgPeriod  = 20
)

// IndicatorSet holds the raw numeric indicator values for one symbol.
// A nil field means the series was too short for that indicator.
type IndicatorSet struct {
	RSI           *float64
	MACD          *float64 // MACD line
	MACDSignal    *float64 // Signal line (EMA of the MACD line)
	MACDHistogram *float64 // MACD line minus signal line
	SMA50         *float64
	SMA200        *float64
	StochasticK   *float64
	VolumeRatio   *float64 // Latest volume / trailing 20-day average volume
}

// CalculateIndicators derives all raw indicator values from an ascending
// price series. Each value is produced independently.
func CalculateIndicators(points []domain.PricePoint) IndicatorSet {
	closes := make([]float64, len(points))
	highs := make([]float64, len(points))
	lows := make([]float64, len(points))
	volumes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
		highs[i] = p.High
		lows[i] = p.Low
		volumes[i] = float64(p.Volume)
	}

	set := IndicatorSet{}

	if len(closes) >= rsiPeriod+1 {
		set.RSI = lastValid(talib.Rsi(closes, rsiPeriod))
	}

	if len(closes) >= macdSlowPeriod+macdSignalPeriod {
		macdLine, signalLine, histogram := talib.Macd(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
		set.MACD = lastValid(macdLine)
		set.MACDSignal = lastValid(signalLine)
		set.MACDHistogram = lastValid(histogram)
	}

	if len(closes) >= smaShortPeriod {
		set.SMA50 = lastValid(talib.Sma(closes, smaShortPeriod))
	}

	if len(closes) >= smaLongPeriod {
		set.SMA200 = lastValid(talib.Sma(closes, smaLongPeriod))
	}

	if len(closes) >= stochKPeriod+stochSmoothK+stochSmoothD {
		slowK, _ := talib.Stoch(highs, lows, closes, stochKPeriod, stochSmoothK, talib.SMA, stochSmoothD, talib.SMA)
		set.StochasticK = lastValid(slowK)
	}

	if len(volumes) >= volumeAvgPeriod+1 {
		// Trailing average excludes the latest bar so a volume spike is
		// compared against normal activity, not against itself.
		window := volumes[len(volumes)-volumeAvgPeriod-1 : len(volumes)-1]
		sum := 0.0
		for _, v := range window {
			sum += v
		}
		avg := sum / float64(volumeAvgPeriod)
		if avg > 0 {
			ratio := volumes[len(volumes)-1] / avg
			set.VolumeRatio = &ratio
		}
	}

	return set
}

// lastValid returns the last non-NaN value of a talib output series
func lastValid(values []float64) *float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			v := values[i]
			return &v
		}
	}
	return nil
}
