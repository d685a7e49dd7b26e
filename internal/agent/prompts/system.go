// Package prompts contains the system prompt and India-specific context for
// the stock Q&A agent.
package prompts

import (
	"fmt"
	"strings"
	"time"
)

// AgentStockQA is the canonical identifier of the Q&A agent.
const AgentStockQA = "stock_qa_analyst"

// StockDataToolName is the name of the single tool bound to the agent.
const StockDataToolName = "stock_data_tool"

// StockQASystemPrompt is the system prompt for the stock Q&A agent.
const StockQASystemPrompt = `You are a helpful assistant that answers questions about the historical daily price data of one Indian equity.

## Data Access
- You have exactly one tool, ` + "`" + StockDataToolName + "`" + `. It takes no arguments and returns the fetched price table as CSV with columns Date, Open, High, Low, Close, Volume, Dividends, Stock Splits.
- Call the tool before answering any question that depends on prices, volumes, dates, dividends or splits.

## Guidelines
1. Base every number you state on the table; never estimate or fabricate values.
2. If the table does not cover what is asked (a date outside the range, a different company), say so plainly.
3. Keep answers short and direct. Show the figures you used when you compute something (returns, averages, highs and lows).`

// SeriesContext describes the loaded series so the model knows which symbol
// and window the tool covers.
func SeriesContext(symbol, currency string, first, last time.Time, rows int) string {
	var b strings.Builder
	b.WriteString("\n## Loaded Series\n")
	fmt.Fprintf(&b, "- Symbol: %s\n", symbol)
	if currency != "" {
		fmt.Fprintf(&b, "- Currency: %s\n", currency)
	}
	if rows > 0 {
		fmt.Fprintf(&b, "- Range: %s to %s (%d trading days)\n",
			first.Format("02-Jan-2006"), last.Format("02-Jan-2006"), rows)
	}
	return b.String()
}

// StockQAPrompt assembles the full system prompt for one question.
func StockQAPrompt(symbol, currency string, first, last time.Time, rows int) string {
	return StockQASystemPrompt + "\n" + SeriesContext(symbol, currency, first, last, rows) + IndianMarketPromptSuffix()
}
