// Package export writes price history and indicator snapshots as CSV.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"equity-signalbot/internal/indicator"
	"equity-signalbot/internal/model"
)

const dateLayout = "2006-01-02"

type closeRow struct {
	Date  string `csv:"Date"`
	Close string `csv:"Close"`
}

type indicatorRow struct {
	Date       string `csv:"Date"`
	Close      string `csv:"Close"`
	EMAFast    string `csv:"EMA_Fast"`
	EMASlow    string `csv:"EMA_Slow"`
	MACD       string `csv:"MACD"`
	MACDSignal string `csv:"MACD_Signal"`
	RSI        string `csv:"RSI"`
	SMAShort   string `csv:"SMA_Short"`
	SMALong    string `csv:"SMA_Long"`
}

// WriteSeries writes the series as Date,Close rows, oldest first.
func WriteSeries(w io.Writer, series model.PriceSeries) error {
	rows := make([]closeRow, 0, series.Len())
	for _, b := range series.Bars() {
		rows = append(rows, closeRow{
			Date:  b.Date.Format(dateLayout),
			Close: b.Close.String(),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("export %s: %w", series.Symbol(), err)
	}
	return nil
}

// WriteIndicators writes one row per bar with every indicator value.
// Absent values are left empty.
func WriteIndicators(w io.Writer, vec *indicator.Vector) error {
	rows := make([]indicatorRow, 0, vec.Len())
	for i := 0; i < vec.Len(); i++ {
		p, _ := vec.At(i)
		rows = append(rows, indicatorRow{
			Date:       p.Date.Format(dateLayout),
			Close:      formatFloat(p.Close),
			EMAFast:    formatOpt(p.EMAFast),
			EMASlow:    formatOpt(p.EMASlow),
			MACD:       formatOpt(p.MACD),
			MACDSignal: formatOpt(p.MACDSignal),
			RSI:        formatOpt(p.RSI),
			SMAShort:   formatOpt(p.SMAShort),
			SMALong:    formatOpt(p.SMALong),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("export %s indicators: %w", vec.Symbol, err)
	}
	return nil
}

func formatOpt(o indicator.Optional[float64]) string {
	if !o.HasValue {
		return ""
	}
	return formatFloat(o.Value)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
