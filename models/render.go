package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"stockadvisor/api"
	"stockadvisor/ui"
)

// Renderers turn a payload into the full text of one section. They never
// mutate state; the selected row (if any) is prefixed with cursorMarker.

const cursorMarker = "▶"

const alertBarWidth = 32

func rowPrefix(i, cursor int) string {
	if i == cursor {
		return ui.SelectedStyle.Render(cursorMarker) + " "
	}
	return "  "
}

func emptyState(msg string) string {
	return ui.MutedStyle.Render(msg)
}

// ErrorState is the inline replacement for a section whose fetch failed.
func ErrorState(msg string) string {
	return ui.NegativeStyle.Render("Error: " + msg)
}

func logoOr(logo string) string {
	if logo == "" {
		return "📈"
	}
	return logo
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func pad(s string, n int) string {
	return fmt.Sprintf("%-*s", n, ui.Truncate(s, n))
}

func padLeft(s string, n int) string {
	return fmt.Sprintf("%*s", n, s)
}

func statCard(label, value string) string {
	return ui.MenuStyle.Copy().Padding(0, 1).MarginTop(0).Render(
		ui.MutedStyle.Render(label) + "\n" + value)
}

func statRow(cards ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// RenderMarketSummary renders the four headline cards.
func RenderMarketSummary(stocks []api.Stock) string {
	s, ok := SummarizeMarket(stocks)
	if !ok {
		return ""
	}
	return statRow(
		statCard("Top Gainer", ui.ValueStyle.Render(nameOr(s.TopGainer.Symbol, "-"))+" "+
			ui.PositiveStyle.Render(fmt.Sprintf("+%.2f%%", s.TopGainer.ChangePercent))),
		statCard("Top Loser", ui.ValueStyle.Render(nameOr(s.TopLoser.Symbol, "-"))+" "+
			ui.NegativeStyle.Render(fmt.Sprintf("%.2f%%", s.TopLoser.ChangePercent))),
		statCard("Most Active", ui.ValueStyle.Render(nameOr(s.MostActive.Symbol, "-"))+" "+
			ui.MutedStyle.Render(ui.FormatVolume(s.MostActive.Volume)+" vol")),
		statCard("Market Mood", ui.ValueStyle.Render(s.Mood)+" "+
			ui.ChangeStyle(s.AverageChange).Render(s.MoodDescription)),
	)
}

func RenderMarket(data *api.MarketOverview, cur string, cursor int) string {
	if data == nil || len(data.Stocks) == 0 {
		return emptyState("No market data")
	}

	var b strings.Builder
	b.WriteString(RenderMarketSummary(data.Stocks) + "\n\n")
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("  %-3s%-8s %-16s %14s %10s %9s", "", "Stock", "Name", "Price", "Change", "Volume")) + "\n")
	for i, s := range data.Stocks {
		b.WriteString(fmt.Sprintf("%s%s %s %s %s %s %s\n",
			rowPrefix(i, cursor),
			logoOr(s.Logo),
			ui.ValueStyle.Render(pad(s.Symbol, 8)),
			pad(nameOr(s.Name, s.Symbol), 16),
			padLeft(ui.FormatMoney(cur, s.CurrentPrice), 14),
			ui.ChangeStyle(s.ChangePercent).Render(padLeft(ui.FormatChange(s.ChangePercent, 2), 10)),
			ui.MutedStyle.Render(padLeft(ui.FormatVolume(s.Volume), 9)),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPortfolioStats renders the totals above the holdings table.
func RenderPortfolioStats(data *api.Portfolio, cur string) string {
	if data == nil {
		data = &api.Portfolio{}
	}
	return statRow(
		statCard("Total Value", ui.FormatMarketValue(cur, data.TotalValue)),
		statCard("Day Change", ui.FormatCurrency(cur, data.DayGain)),
		statCard("Total Gain", ui.FormatCurrency(cur, data.TotalGain)),
		statCard("Holdings", ui.ValueStyle.Render(fmt.Sprint(len(data.Holdings)))),
	)
}

func RenderPortfolio(data *api.Portfolio, cur string, cursor int) string {
	var b strings.Builder
	b.WriteString(RenderPortfolioStats(data, cur) + "\n\n")

	if data == nil || len(data.Holdings) == 0 {
		b.WriteString(emptyState("No holdings in this exchange. Add stocks to your portfolio!"))
		return b.String()
	}

	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("  %-3s%-8s %8s %10s %10s %14s %8s", "", "Stock", "Qty", "Avg", "Price", "Value", "Gain")) + "\n")
	for i, h := range data.Holdings {
		b.WriteString(fmt.Sprintf("%s%s %s %8s %10s %10s %s %s\n",
			rowPrefix(i, cursor),
			logoOr(h.Logo),
			ui.ValueStyle.Render(pad(h.Symbol, 8)),
			formatQuantity(h.Quantity),
			ui.FormatWhole(cur, h.AverageCost),
			ui.FormatWhole(cur, h.CurrentPrice),
			ui.ValueStyle.Render(padLeft(ui.FormatMoney(cur, h.TotalValue), 14)),
			ui.ChangeStyle(h.Gain).Render(padLeft(fmt.Sprintf("%.1f%%", h.GainPercent), 8)),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatQuantity(q float64) string {
	if q == math.Trunc(q) {
		return fmt.Sprintf("%.0f", q)
	}
	return ui.FormatNumber(q)
}

func RenderWatchlist(data *api.Watchlist, cur string, cursor int) string {
	if data == nil || len(data.Stocks) == 0 {
		return emptyState("No stocks in watchlist")
	}

	var b strings.Builder
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("  %-3s%-8s %-16s %14s %10s  %s", "", "Stock", "Name", "Price", "Change", "Range")) + "\n")
	for i, s := range data.Stocks {
		b.WriteString(fmt.Sprintf("%s%s %s %s %s %s  %s\n",
			rowPrefix(i, cursor),
			logoOr(s.Logo),
			ui.ValueStyle.Render(pad(s.Symbol, 8)),
			pad(ui.Truncate(s.Name, 15), 16),
			padLeft(ui.FormatMoney(cur, s.CurrentPrice), 14),
			ui.ChangeStyle(s.ChangePercent).Render(padLeft(ui.FormatChange(s.ChangePercent, 2), 10)),
			ui.MutedStyle.Render(ui.FormatWhole(cur, s.DayLow)+"-"+ui.FormatWhole(cur, s.DayHigh)),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

// recommendationLabel turns STRONG_BUY into "STRONG" the way the rating badge
// is abbreviated.
func recommendationLabel(t string) string {
	return ui.Truncate(strings.Replace(t, "_", " ", 1), 6)
}

func recommendationStyle(t string) string {
	switch {
	case strings.Contains(t, "BUY"):
		return ui.PositiveStyle.Render(pad(recommendationLabel(t), 7))
	case strings.Contains(t, "SELL"):
		return ui.NegativeStyle.Render(pad(recommendationLabel(t), 7))
	}
	return ui.WarningStyle.Render(pad(recommendationLabel(t), 7))
}

func RenderAIPicks(recs []api.Recommendation, cur string, cursor int) string {
	if len(recs) == 0 {
		return emptyState("No recommendations at this time")
	}

	var b strings.Builder
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("  %-3s%-8s %-7s %5s %10s %8s", "", "Stock", "Rating", "Conf", "Target", "Gain")) + "\n")
	for i, r := range recs {
		b.WriteString(fmt.Sprintf("%s📈 %s %s %5s %10s %s\n",
			rowPrefix(i, cursor),
			ui.ValueStyle.Render(pad(r.Symbol, 8)),
			recommendationStyle(r.RecommendationType),
			fmt.Sprintf("%.0f%%", r.ConfidenceScore*100),
			ui.FormatWhole(cur, r.TargetPrice),
			ui.PositiveStyle.Render(padLeft(fmt.Sprintf("+%.1f%%", r.PotentialReturn), 8)),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

// AlertBar draws the stop-to-target track with the live price marker.
func AlertBar(a api.Alert, width int) string {
	pos := int(math.Round(AlertMarker(a) / 100 * float64(width-1)))
	left := strings.Repeat("─", pos)
	right := strings.Repeat("─", width-1-pos)
	return ui.NegativeStyle.Render(left) + ui.ValueStyle.Render("●") + ui.PositiveStyle.Render(right)
}

func RenderAlerts(data *api.AlertList, cur string, cursor int) string {
	if data == nil || len(data.Alerts) == 0 {
		return emptyState("No stock alerts yet. Press n to create your first alert to track entry, stop loss, and target prices!")
	}

	icon := cur
	if r := []rune(cur); len(r) > 0 {
		icon = string(r[0])
	}

	var b strings.Builder
	for i, a := range data.Alerts {
		price := AlertPrice(a)

		b.WriteString(fmt.Sprintf("%s%s %s  %s  LTP: %s %s\n",
			rowPrefix(i, cursor),
			ui.ValueStyle.Render(a.Symbol),
			ui.MutedStyle.Render(nameOr(a.Name, a.Symbol)),
			ui.MutedStyle.Render(formatTimestamp(a.CreatedAt)),
			ui.ValueStyle.Render(ui.FormatMoney(cur, price)),
			ui.ChangeStyle(a.ChangePercent).Render("("+ui.FormatChange(a.ChangePercent, 2)+")"),
		))
		b.WriteString("    " + AlertBar(a, alertBarWidth) + "\n")
		b.WriteString(fmt.Sprintf("    SL %s   Entry %s   Target %s\n",
			ui.NegativeStyle.Render(ui.FormatMoney(cur, a.StopLoss)),
			ui.ValueStyle.Render(ui.FormatMoney(cur, a.EntryPrice)),
			ui.PositiveStyle.Render(ui.FormatMoney(cur, a.TargetPrice)),
		))

		footer := fmt.Sprintf("    [%s] Potential from CMP: %s", icon, ui.ChangeStyle(a.PotentialReturn).Render(ui.FormatChange(a.PotentialReturn, 2)))
		if a.Rationale != "" {
			footer += ui.MutedStyle.Render("   (v: view rationale)")
		}
		b.WriteString(footer + "\n\n")
	}
	b.WriteString(ui.MutedStyle.Render("Powered by Trader Smith"))
	return b.String()
}

func RenderSearchResults(data *api.SearchResults, cursor int) string {
	if data == nil || len(data.Results) == 0 {
		return ui.MutedStyle.Render("No results found")
	}
	var b strings.Builder
	for i, s := range data.Results {
		b.WriteString(fmt.Sprintf("%s%s %s %s\n", rowPrefix(i, cursor), logoOr(s.Logo), ui.ValueStyle.Render(pad(s.Symbol, 10)), s.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func feedbackStatusStyle(status string) string {
	label := strings.Replace(status, "_", " ", 1)
	switch status {
	case api.FeedbackNew:
		return ui.PositiveStyle.Render(label)
	case api.FeedbackInProgress:
		return ui.WarningStyle.Render(label)
	case api.FeedbackClosed:
		return ui.MutedStyle.Render(label)
	}
	return ui.ValueStyle.Render(label)
}

func RenderFeedback(data *api.FeedbackList, filter string, cursor int) string {
	var b strings.Builder

	var filters []string
	for _, f := range FeedbackFilters {
		label := feedbackFilterLabel(f)
		if f == filter {
			filters = append(filters, ui.ActiveTabStyle.Render(label))
		} else {
			filters = append(filters, ui.TabStyle.Render(label))
		}
	}
	b.WriteString(strings.Join(filters, " ") + "\n\n")

	if data == nil || len(data.Feedback) == 0 {
		b.WriteString(emptyState("No feedback found"))
		return b.String()
	}

	for i, f := range data.Feedback {
		by := f.UserName
		if by == "" {
			by = f.UserEmail
		}
		b.WriteString(fmt.Sprintf("%s%s  %s  %s\n", rowPrefix(i, cursor),
			feedbackStatusStyle(f.Status), ui.MutedStyle.Render(f.Type), ui.MutedStyle.Render("by "+by)))
		b.WriteString("    " + f.Message + "\n")

		meta := formatTimestamp(f.CreatedAt)
		if _, action, ok := NextFeedbackStatus(f.Status); ok {
			meta += "   a: " + action
		}
		b.WriteString("    " + ui.MutedStyle.Render(meta+"   x: Delete") + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderAdminStats(stats *api.AdminStats) string {
	if stats == nil {
		stats = &api.AdminStats{}
	}
	newCount := 0
	if stats.FeedbackStats != nil {
		newCount = stats.FeedbackStats.New
	}
	return statRow(
		statCard("Total Users", ui.ValueStyle.Render(fmt.Sprint(stats.TotalUsers))),
		statCard("Total Feedback", ui.ValueStyle.Render(fmt.Sprint(stats.TotalFeedback))),
		statCard("New", ui.SelectedStyle.Render(fmt.Sprint(newCount))),
		statCard("Guest Sessions", ui.WarningStyle.Render(fmt.Sprint(stats.GuestSessions))),
	)
}

func RenderUsers(data *api.UserList, cursor int) string {
	if data == nil || len(data.Users) == 0 {
		return emptyState("No users")
	}

	var b strings.Builder
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("  %-22s %-28s %-10s %-9s %s", "User", "Email", "Provider", "Status", "Login Issues")) + "\n")
	for i, u := range data.Users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		if u.IsAdmin {
			name += " [ADMIN]"
		}
		provider := "Email"
		if u.SSOProvider != "" {
			provider = u.SSOProvider
		}
		status := ui.PositiveStyle.Render(pad("Active", 9))
		if !u.IsActive {
			status = ui.NegativeStyle.Render(pad("Disabled", 9))
		}
		issues := "-"
		if u.LoginIssues {
			issues = ui.NegativeStyle.Render("Yes")
		}
		b.WriteString(fmt.Sprintf("%s%s %s %s %s %s\n", rowPrefix(i, cursor),
			ui.ValueStyle.Render(pad(name, 22)), pad(u.Email, 28), pad(provider, 10), status, issues))
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderGuestSessions(data *api.GuestSessionList) string {
	if data == nil || len(data.Sessions) == 0 {
		return emptyState("No guest sessions yet")
	}

	var b strings.Builder
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("%-14s %-17s %-22s %-24s %s", "Guest ID", "Created", "Device", "Location", "Screen")) + "\n")
	for _, s := range data.Sessions {
		ua := ""
		if s.DeviceInfo != nil {
			ua = s.DeviceInfo.UserAgent
		}
		device := BrowserLabel(ua) + " / " + PlatformLabel(s.DeviceInfo)
		b.WriteString(fmt.Sprintf("%s %s %s %s %s\n",
			pad(s.GuestID.String(), 14),
			ui.MutedStyle.Render(pad(formatTimestamp(s.CreatedAt), 17)),
			pad(device, 22),
			pad(LocationLabel(s.LocationInfo), 24),
			ScreenLabel(s.DeviceInfo),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

func sanityStatus(status string) string {
	switch status {
	case "PASS":
		return ui.PositiveStyle.Render("✓ " + status)
	case "FAIL":
		return ui.NegativeStyle.Render("✗ " + status)
	}
	return ui.WarningStyle.Render("⚠ " + status)
}

// RenderSanitySummary renders the four counters.
func RenderSanitySummary(s *api.SanitySummary) string {
	if s == nil {
		s = &api.SanitySummary{}
	}
	return statRow(
		statCard("Total", ui.ValueStyle.Render(fmt.Sprint(s.Total))),
		statCard("Passed", ui.PositiveStyle.Render(fmt.Sprint(s.Passed))),
		statCard("Failed", ui.NegativeStyle.Render(fmt.Sprint(s.Failed))),
		statCard("Errors", ui.WarningStyle.Render(fmt.Sprint(s.Errors))),
	)
}

func RenderSanity(report *api.SanityReport) string {
	var summary *api.SanitySummary
	if report != nil {
		summary = report.Summary
	}

	var b strings.Builder
	if report == nil || len(report.Results) == 0 {
		b.WriteString(RenderSanitySummary(nil) + "\n\n")
		b.WriteString(emptyState("No tests run yet. Press s to run the sanity tests."))
		return b.String()
	}
	if summary == nil {
		summary = &api.SanitySummary{}
	}

	b.WriteString(RenderSanitySummary(summary) + "\n\n")
	b.WriteString(fmt.Sprintf("%s %s   %s  %s  %s\n\n",
		ui.ValueStyle.Render(PassRate(summary)+"%"), ui.MutedStyle.Render("Pass Rate"),
		ui.PositiveStyle.Render(fmt.Sprintf("✓ %d Passed", summary.Passed)),
		ui.NegativeStyle.Render(fmt.Sprintf("✗ %d Failed", summary.Failed)),
		ui.WarningStyle.Render(fmt.Sprintf("⚠ %d Errors", summary.Errors)),
	))

	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("%-4s %-34s %-8s %9s  %s", "#", "Test Name", "Status", "Duration", "Message")) + "\n")
	for i, r := range report.Results {
		b.WriteString(fmt.Sprintf("%-4d %s %s %9s  %s\n",
			i+1,
			pad(r.TestName, 34),
			sanityStatus(r.Status),
			fmt.Sprintf("%gms", r.DurationMS),
			ui.MutedStyle.Render(ui.Truncate(r.Message, 60)),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

func outlookStyle(rec string) string {
	switch {
	case strings.Contains(rec, "BUY"):
		return ui.PositiveStyle.Render(rec)
	case strings.Contains(rec, "SELL"):
		return ui.NegativeStyle.Render(rec)
	}
	return ui.WarningStyle.Render(rec)
}

func targetChange(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%g%%", v)
	}
	return fmt.Sprintf("%g%%", v)
}

// RenderQuote renders the stock detail modal body.
func RenderQuote(symbol string, q *api.Stock, cur, exchange string) string {
	if q == nil {
		q = &api.Stock{}
	}
	ai := AnalysisWithDefaults(q.AIAnalysis)

	var b strings.Builder
	b.WriteString(ui.ValueStyle.Render(nameOr(q.Name, symbol)) + "\n")
	b.WriteString(ui.MutedStyle.Render(fmt.Sprintf("%s | %s", q.Sector, nameOr(q.Exchange, exchange))) + "\n\n")

	change := math.Abs(q.Change)
	b.WriteString(ui.FormatPrice(cur, q.CurrentPrice) + "  " +
		ui.ChangeStyle(q.ChangePercent).Render(fmt.Sprintf("%s (%s%.2f)", ui.FormatChange(q.ChangePercent, 2), cur, change)) + "\n\n")

	b.WriteString(statRow(
		statCard("Open", fmt.Sprintf("%s%.2f", cur, q.OpenPrice)),
		statCard("High", fmt.Sprintf("%s%.2f", cur, q.DayHigh)),
		statCard("Low", fmt.Sprintf("%s%.2f", cur, q.DayLow)),
		statCard("Vol", ui.FormatCompact(q.Volume)),
	) + "\n\n")

	b.WriteString(ui.BadgeStyle.Render("AI ANALYSIS") + "  " + ui.ValueStyle.Render(ai.Sentiment) + "\n")
	b.WriteString(fmt.Sprintf("Confidence %s %.0f%%\n", confidenceBar(ai.Confidence, 20), ai.Confidence))
	b.WriteString(fmt.Sprintf("Short Term (%s): %s  Target: %s\n", ai.ShortTerm.Timeframe, outlookStyle(ai.ShortTerm.Recommendation), targetChange(ai.ShortTerm.TargetChange)))
	b.WriteString(fmt.Sprintf("Long Term (%s): %s  Target: %s\n", ai.LongTerm.Timeframe, outlookStyle(ai.LongTerm.Recommendation), targetChange(ai.LongTerm.TargetChange)))
	b.WriteString(fmt.Sprintf("Risk: %s   Technical: %s\n", ui.ValueStyle.Render(ai.RiskLevel), ui.ValueStyle.Render(ai.TechnicalRating)))
	if len(ai.Bullish) > 0 {
		b.WriteString(ui.PositiveStyle.Render("Bullish Factors") + "\n" + strings.Join(ai.Bullish, " • ") + "\n")
	}
	if len(ai.Bearish) > 0 {
		b.WriteString(ui.NegativeStyle.Render("Bearish Factors") + "\n" + strings.Join(ai.Bearish, " • ") + "\n")
	}
	b.WriteString("\n" + ui.MutedStyle.Render("TradingView: "+TradingViewURL(symbol, q.TradingViewURL)))
	return b.String()
}

func confidenceBar(pct float64, width int) string {
	filled := int(math.Round(max(0, min(100, pct)) / 100 * float64(width)))
	return ui.SelectedStyle.Render(strings.Repeat("█", filled)) + ui.MutedStyle.Render(strings.Repeat("░", width-filled))
}

// formatTimestamp shows backend timestamps in local time. Unparseable values
// are returned as-is.
func formatTimestamp(s string) string {
	if s == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Local().Format("2006-01-02 15:04")
		}
	}
	return s
}
