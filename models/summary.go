package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"stockadvisor/api"
)

// MarketSummary holds the aggregates shown above the market table.
type MarketSummary struct {
	TopGainer       api.Stock
	TopLoser        api.Stock
	MostActive      api.Stock
	AverageChange   float64
	Mood            string
	MoodDescription string
}

// SummarizeMarket derives the headline figures. ok is false for an empty list.
func SummarizeMarket(stocks []api.Stock) (s MarketSummary, ok bool) {
	if len(stocks) == 0 {
		return s, false
	}

	s.TopGainer, s.TopLoser, s.MostActive = stocks[0], stocks[0], stocks[0]
	var total float64
	for i, st := range stocks {
		total += st.ChangePercent
		if i == 0 {
			continue
		}
		if st.ChangePercent > s.TopGainer.ChangePercent {
			s.TopGainer = st
		}
		// Ties go to the later entry, as they would at the end of a descending sort.
		if st.ChangePercent <= s.TopLoser.ChangePercent {
			s.TopLoser = st
		}
		if st.Volume > s.MostActive.Volume {
			s.MostActive = st
		}
	}

	s.AverageChange = total / float64(len(stocks))
	s.Mood = MarketMood(s.AverageChange)
	s.MoodDescription = "Market Down"
	if s.AverageChange > 0 {
		s.MoodDescription = "Market Up"
	}
	return s, true
}

// MarketMood labels the mean percentage change.
func MarketMood(avg float64) string {
	switch {
	case avg > 0.5:
		return "Bullish"
	case avg < -0.5:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// AlertPrice is the price an alert is tracked against: the live price, or the
// entry price when the backend has none.
func AlertPrice(a api.Alert) float64 {
	if a.CurrentPrice != 0 {
		return a.CurrentPrice
	}
	return a.EntryPrice
}

// AlertMarker places the tracked price on the stop-to-target bar, 0 to 100.
func AlertMarker(a api.Alert) float64 {
	span := a.TargetPrice - a.StopLoss
	if span <= 0 {
		return 50
	}
	pos := (AlertPrice(a) - a.StopLoss) / span * 100
	return max(0, min(100, pos))
}

// ValidateAlert checks a new alert before anything is sent.
func ValidateAlert(req api.CreateAlertRequest) error {
	switch {
	case strings.TrimSpace(req.Symbol) == "":
		return errors.New("Please enter a stock symbol")
	case !validPrice(req.EntryPrice):
		return errors.New("Please enter a valid entry price")
	case !validPrice(req.StopLoss):
		return errors.New("Please enter a valid stop loss price")
	case !validPrice(req.TargetPrice):
		return errors.New("Please enter a valid target price")
	case req.StopLoss >= req.EntryPrice:
		return errors.New("Stop loss must be below entry price")
	case req.TargetPrice <= req.EntryPrice:
		return errors.New("Target price must be above entry price")
	}
	return nil
}

// validPrice is false for NaN as well as for zero, negative and infinite values.
func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// NextFeedbackStatus returns the status after current and the label of the
// action that moves it there. Closed feedback has nowhere to go.
func NextFeedbackStatus(current string) (next, action string, ok bool) {
	switch current {
	case api.FeedbackNew:
		return api.FeedbackInProgress, "Start", true
	case api.FeedbackInProgress:
		return api.FeedbackResolved, "Resolve", true
	case api.FeedbackResolved:
		return api.FeedbackClosed, "Close", true
	}
	return "", "", false
}

// FeedbackFilters are the list filters in display order; "" shows everything.
var FeedbackFilters = []string{"", api.FeedbackNew, api.FeedbackInProgress, api.FeedbackResolved}

func feedbackFilterLabel(status string) string {
	switch status {
	case "":
		return "All"
	case api.FeedbackNew:
		return "New"
	case api.FeedbackInProgress:
		return "In Progress"
	case api.FeedbackResolved:
		return "Resolved"
	}
	return status
}

// BrowserLabel guesses the browser family from a user agent.
func BrowserLabel(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	case strings.Contains(userAgent, "Safari"):
		return "Safari"
	}
	return "Other"
}

// LocationLabel is "city, country" when both are known, else the best single field.
func LocationLabel(loc *api.GuestLocation) string {
	if loc == nil {
		return "Unknown"
	}
	switch {
	case loc.City != "" && loc.Country != "":
		return loc.City + ", " + loc.Country
	case loc.Country != "":
		return loc.Country
	case loc.IPAddress != "":
		return loc.IPAddress
	}
	return "Unknown"
}

func ScreenLabel(dev *api.GuestDevice) string {
	if dev == nil || dev.ScreenWidth == 0 || dev.ScreenHeight == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", dev.ScreenWidth, dev.ScreenHeight)
}

func PlatformLabel(dev *api.GuestDevice) string {
	if dev == nil || dev.Platform == "" {
		return "Unknown"
	}
	return dev.Platform
}

// PassRate is passed/total as a percentage with one decimal, "0" with no tests.
func PassRate(s *api.SanitySummary) string {
	if s == nil || s.Total <= 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", float64(s.Passed)/float64(s.Total)*100)
}

// TradingViewURL falls back to the public symbol page.
func TradingViewURL(symbol, url string) string {
	if url != "" {
		return url
	}
	return fmt.Sprintf("https://www.tradingview.com/symbols/%s/", symbol)
}

// Analysis is an AI analysis block with display defaults filled in.
type Analysis struct {
	Sentiment       string
	Confidence      float64
	ShortTerm       api.Outlook
	LongTerm        api.Outlook
	RiskLevel       string
	TechnicalRating string
	Bullish         []string
	Bearish         []string
}

// AnalysisWithDefaults fills whatever the backend left out.
func AnalysisWithDefaults(ai *api.AIAnalysis) Analysis {
	a := Analysis{
		Sentiment:       "NEUTRAL",
		Confidence:      50,
		ShortTerm:       api.Outlook{Timeframe: "1-4 weeks", Recommendation: "HOLD"},
		LongTerm:        api.Outlook{Timeframe: "6-12 months", Recommendation: "HOLD"},
		RiskLevel:       "Medium",
		TechnicalRating: "Neutral",
	}
	if ai == nil {
		return a
	}

	if ai.OverallSentiment != "" {
		a.Sentiment = ai.OverallSentiment
	}
	if ai.ConfidenceScore != 0 {
		a.Confidence = ai.ConfidenceScore
	}
	a.ShortTerm = outlookWithDefaults(ai.ShortTerm, a.ShortTerm)
	a.LongTerm = outlookWithDefaults(ai.LongTerm, a.LongTerm)
	if ai.RiskLevel != "" {
		a.RiskLevel = ai.RiskLevel
	}
	if ai.TechnicalRating != "" {
		a.TechnicalRating = ai.TechnicalRating
	}
	a.Bullish = ai.BullishFactors
	a.Bearish = ai.BearishFactors
	return a
}

func outlookWithDefaults(o *api.Outlook, def api.Outlook) api.Outlook {
	if o == nil {
		return def
	}
	out := *o
	if out.Timeframe == "" {
		out.Timeframe = def.Timeframe
	}
	if out.Recommendation == "" {
		out.Recommendation = def.Recommendation
	}
	return out
}
