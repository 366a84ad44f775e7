package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"CoinSentinel/internal/model"
)

var signalIcon = map[model.Signal]string{
	model.SignalBuy:     "🟢",
	model.SignalSell:    "🔴",
	model.SignalNeutral: "⚪",
}

var classIcon = map[model.Classification]string{
	model.ClassBuy:     "▲",
	model.ClassSell:    "▼",
	model.ClassNeutral: "•",
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatSignalReport formats one asset report into a Telegram HTML message.
func FormatSignalReport(rep *model.Report) string {
	var b strings.Builder
	sig := rep.Signal

	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s\n", signalIcon[sig.Signal],
		html.EscapeString(strings.ToUpper(rep.Asset)), rep.GeneratedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Price: %s\n", money(sig.Price)))
	b.WriteString(fmt.Sprintf("Signal: <b>%s</b> (%s) | score %+d\n\n", sig.Signal, sig.Strength, sig.Score))

	b.WriteString("📈 <b>Indicators:</b>\n")
	for _, v := range sig.Verdicts {
		b.WriteString(fmt.Sprintf("  %s %s: %s | %s\n", classIcon[v.Classification],
			html.EscapeString(v.Name), html.EscapeString(v.Value), html.EscapeString(v.Message)))
	}

	if ext := rep.Extended; ext != nil {
		b.WriteString("\n🔎 <b>Context:</b>\n")
		b.WriteString(fmt.Sprintf("  Trend: %s", ext.TrendContext))
		if ext.ADX != nil {
			b.WriteString(fmt.Sprintf(" (ADX %s, %s)", money(*ext.ADX), ext.TrendStrength))
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  Support %s / Resistance %s\n", money(ext.Support), money(ext.Resistance)))
		b.WriteString(fmt.Sprintf("  OBV: %s | Divergence: %s\n", ext.OBVTrend, ext.Divergence))
		b.WriteString(fmt.Sprintf("  Adjusted score %+d | confidence %d%%\n", ext.AdjustedScore, ext.Confidence))
	}
	return b.String()
}

// FormatSignalChange announces a flip of the overall signal.
func FormatSignalChange(rep *model.Report, previous model.Signal) string {
	return fmt.Sprintf("🔔 <b>%s</b> signal changed: %s → %s\n\n%s",
		html.EscapeString(strings.ToUpper(rep.Asset)), previous, rep.Signal.Signal, FormatSignalReport(rep))
}

// FormatWatchlist lists the watched assets.
func FormatWatchlist(assets []string) string {
	if len(assets) == 0 {
		return "📋 Watchlist is empty. Use /watch &lt;asset&gt; to add one."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Watchlist</b> (%d)\n", len(assets)))
	for _, a := range assets {
		b.WriteString("  • " + html.EscapeString(a) + "\n")
	}
	return b.String()
}

// FormatPrice formats a live price sample.
func FormatPrice(asset string, p model.PricePoint) string {
	return fmt.Sprintf("💱 <b>%s</b>: %s (as of %s)", html.EscapeString(strings.ToUpper(asset)),
		money(p.Price), p.Time.Format("15:04:05 MST"))
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return strings.Join([]string{
		"🤖 <b>CoinSentinel commands</b>",
		"/signal &lt;asset&gt; - analyze an asset now",
		"/watch &lt;asset&gt; - add to the watchlist",
		"/unwatch &lt;asset&gt; - remove from the watchlist",
		"/list - show the watchlist",
		"/price &lt;asset&gt; - latest live price",
	}, "\n")
}
