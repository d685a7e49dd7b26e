package agent

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/seenimoa/stockqa/internal/agent/prompts"
	"github.com/seenimoa/stockqa/internal/llm"
	"github.com/seenimoa/stockqa/pkg/models"
)

// seriesColumns is the CSV header handed to the model.
var seriesColumns = []string{
	"Date", "Open", "High", "Low", "Close", "Volume", "Dividends", "Stock Splits",
}

// StockDataTool returns the single tool bound to the Q&A agent. Its handler
// ignores any arguments the model sends and returns the series as CSV.
func StockDataTool(series *models.PriceSeries) llm.Tool {
	return llm.Tool{
		Name:        prompts.StockDataToolName,
		Description: "Returns the fetched daily price table for the selected stock as CSV. Takes no arguments.",
		Parameters:  llm.ObjectSchema("", nil),
		Handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return SeriesCSV(series)
		},
	}
}

// SeriesCSV renders the series as CSV, one row per bar, oldest first.
// A nil or empty series yields only the header.
func SeriesCSV(series *models.PriceSeries) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(seriesColumns); err != nil {
		return "", err
	}
	if series != nil {
		for _, b := range series.Bars {
			row := []string{
				b.Date.Format("2006-01-02"),
				formatFloat(b.Open),
				formatFloat(b.High),
				formatFloat(b.Low),
				formatFloat(b.Close),
				strconv.FormatInt(b.Volume, 10),
				formatFloat(b.Dividends),
				formatFloat(b.StockSplits),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
