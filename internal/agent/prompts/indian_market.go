package prompts

// IndianMarketContext provides India-specific market context for the prompt.
const IndianMarketContext = `
## Indian Market Context
- Exchange: NSE (symbols end in .NS) / BSE (symbols end in .BO)
- Currency: Indian Rupee (₹ / INR)
- Market Hours: 9:15 AM – 3:30 PM IST
- Dividends and Stock Splits columns are 0 on days without a corporate action
`

// IndianNumberFormat describes Indian number formatting rules.
const IndianNumberFormat = `
## Number Formatting Rules (Indian Convention)
- Use ₹ prefix for monetary values: ₹2,847.50
- Indian comma grouping: ₹12,34,567 (not ₹1,234,567)
- Volumes in lakhs (L) and crores (Cr) where it helps readability
- Dates: DD-MMM-YYYY format (e.g., 19-Feb-2026)
`

// IndianMarketPromptSuffix returns a prompt suffix with Indian market context.
func IndianMarketPromptSuffix() string {
	return IndianMarketContext + IndianNumberFormat
}
