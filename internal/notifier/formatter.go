// Package notifier renders human-readable iteration reports and pushes
// alerts to Telegram.
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"CryptoPilot/internal/model"
)

// Report bundles everything one iteration produced for presentation.
type Report struct {
	Timestamp   time.Time
	Iteration   int
	Scores      []model.Score
	Targets     []model.AllocationTarget
	Orders      []model.Order
	Snapshot    model.BalanceSnapshot
	RealizedPnL float64
	FeesPaid    float64
	WinRate     float64
	Drawdown    float64
	BreakerOn   bool
}

// FormatReport renders the iteration summary. The same text goes to the
// console and, HTML tags aside, to Telegram.
func FormatReport(r Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>CryptoPilot</b> | iteration %d | %s\n\n",
		r.Iteration, r.Timestamp.UTC().Format("2006-01-02 15:04 MST")))

	if len(r.Scores) > 0 {
		b.WriteString("📈 <b>Ranking:</b>\n")
		for i, s := range r.Scores {
			if i == 10 {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(r.Scores)-i))
				break
			}
			b.WriteString(fmt.Sprintf("  %2d. %-6s score %6.2f  E[r] %+.1f%%\n",
				i+1, s.Symbol, s.Composite, s.ExpectedReturn))
		}
		b.WriteString("\n")
	}

	if len(r.Targets) > 0 {
		b.WriteString("🎯 <b>Targets:</b>\n")
		for _, t := range r.Targets {
			b.WriteString(fmt.Sprintf("  %-6s %5.1f%%\n", t.Symbol, t.Weight*100))
		}
		b.WriteString("\n")
	}

	if len(r.Orders) > 0 {
		b.WriteString("🧾 <b>Orders:</b>\n")
		for _, o := range r.Orders {
			line := fmt.Sprintf("  %s %-4s %-6s %s @ %s [%s]",
				intentTag(o.Intent), strings.ToUpper(string(o.Side)), o.Symbol,
				trimFloat(o.Quantity), humanize.CommafWithDigits(o.Price, 2), o.State)
			if o.Reason != "" {
				line += " — " + o.Reason
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("💰 <b>Portfolio:</b>\n")
	b.WriteString(fmt.Sprintf("  total    $%s\n", humanize.CommafWithDigits(r.Snapshot.TotalValue, 2)))
	b.WriteString(fmt.Sprintf("  cash     $%s\n", humanize.CommafWithDigits(r.Snapshot.CashBalance, 2)))
	b.WriteString(fmt.Sprintf("  crypto   $%s across %d positions\n",
		humanize.CommafWithDigits(r.Snapshot.CryptoValue, 2), r.Snapshot.NumPositions))
	b.WriteString(fmt.Sprintf("  realized %+.2f | fees %.2f | win rate %.0f%%\n",
		r.RealizedPnL, r.FeesPaid, r.WinRate))

	b.WriteString(fmt.Sprintf("\n🛡 drawdown %.1f%%", r.Drawdown))
	if r.BreakerOn {
		b.WriteString(" — ⛔ CIRCUIT BREAKER TRIPPED, new entries halted")
	}
	b.WriteString("\n")

	return b.String()
}

// FormatBreakerAlert renders the message sent when the breaker trips.
func FormatBreakerAlert(highWaterMark, totalValue, drawdown float64) string {
	return fmt.Sprintf(
		"⛔ <b>Circuit breaker tripped</b>\n\n"+
			"Peak value:    $%s\n"+
			"Current value: $%s\n"+
			"Drawdown:      %.1f%%\n\n"+
			"New entries are halted until the breaker is reset.",
		humanize.CommafWithDigits(highWaterMark, 2),
		humanize.CommafWithDigits(totalValue, 2),
		drawdown,
	)
}

// FormatFatalAlert renders the shutdown message sent when the bot halts on
// an unrecoverable error.
func FormatFatalAlert(err error) string {
	return fmt.Sprintf(
		"🚨 <b>Bot halted</b>\n\n%s\n\nManual intervention required; no orders will be placed.",
		err,
	)
}

func intentTag(intent model.OrderIntent) string {
	switch intent {
	case model.IntentStopLoss:
		return "🛑"
	case model.IntentLiquidate:
		return "🔻"
	default:
		return "🔁"
	}
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", v), "0"), ".")
}
