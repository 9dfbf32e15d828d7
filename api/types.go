package api

import (
	"encoding/json"
	"fmt"
)

// Payload shapes returned by the backend. Numeric fields the backend omits
// decode as zero, which is what the views expect.

// ID is a record identifier. The backend sends some ids as strings and some
// as numbers; both decode to the same text.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type User struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsAdmin     bool   `json:"is_admin"`
	IsActive    bool   `json:"is_active"`
	SSOProvider string `json:"sso_provider"`
	LoginIssues bool   `json:"login_issues"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DeviceInfo is the best-effort metadata sent with a guest login.
type DeviceInfo struct {
	UserAgent    string  `json:"user_agent"`
	Platform     string  `json:"platform"`
	Language     string  `json:"language"`
	ScreenWidth  int     `json:"screen_width"`
	ScreenHeight int     `json:"screen_height"`
	Timezone     string  `json:"timezone"`
	DeviceID     string  `json:"device_id,omitempty"`
	IPAddress    string  `json:"ip_address,omitempty"`
	City         string  `json:"city,omitempty"`
	Country      string  `json:"country,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
}

type Outlook struct {
	Timeframe      string  `json:"timeframe"`
	Recommendation string  `json:"recommendation"`
	TargetChange   float64 `json:"target_change"`
}

type AIAnalysis struct {
	OverallSentiment string   `json:"overall_sentiment"`
	ConfidenceScore  float64  `json:"confidence_score"`
	ShortTerm        *Outlook `json:"short_term_outlook"`
	LongTerm         *Outlook `json:"long_term_outlook"`
	RiskLevel        string   `json:"risk_level"`
	TechnicalRating  string   `json:"technical_rating"`
	BullishFactors   []string `json:"bullish_factors"`
	BearishFactors   []string `json:"bearish_factors"`
}

type Stock struct {
	Symbol         string      `json:"symbol"`
	Name           string      `json:"name"`
	Sector         string      `json:"sector"`
	Exchange       string      `json:"exchange"`
	CurrentPrice   float64     `json:"current_price"`
	Change         float64     `json:"change"`
	ChangePercent  float64     `json:"change_percent"`
	DayHigh        float64     `json:"day_high"`
	DayLow         float64     `json:"day_low"`
	OpenPrice      float64     `json:"open_price"`
	Volume         float64     `json:"volume"`
	Logo           string      `json:"logo"`
	TradingViewURL string      `json:"tradingview_url"`
	AIAnalysis     *AIAnalysis `json:"ai_analysis"`
}

type MarketOverview struct {
	Stocks []Stock `json:"stocks"`
}

type SearchResults struct {
	Results []Stock `json:"results"`
}

type Holding struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Logo           string  `json:"logo"`
	Quantity       float64 `json:"quantity"`
	AverageCost    float64 `json:"average_cost"`
	CurrentPrice   float64 `json:"current_price"`
	TotalValue     float64 `json:"total_value"`
	Gain           float64 `json:"gain"`
	GainPercent    float64 `json:"gain_percent"`
	TradingViewURL string  `json:"tradingview_url"`
}

type Portfolio struct {
	TotalValue float64   `json:"total_value"`
	DayGain    float64   `json:"day_gain"`
	TotalGain  float64   `json:"total_gain"`
	Holdings   []Holding `json:"holdings"`
}

type Watchlist struct {
	Stocks []Stock `json:"stocks"`
}

type Recommendation struct {
	Symbol             string  `json:"symbol"`
	RecommendationType string  `json:"recommendation_type"`
	ConfidenceScore    float64 `json:"confidence_score"`
	TargetPrice        float64 `json:"target_price"`
	CurrentPrice       float64 `json:"current_price"`
	PotentialReturn    float64 `json:"potential_return"`
	TradingViewURL     string  `json:"tradingview_url"`
}

type FeedbackItem struct {
	ID        ID     `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Page      string `json:"page"`
	Status    string `json:"status"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	CreatedAt string `json:"created_at"`
}

type FeedbackList struct {
	Feedback []FeedbackItem `json:"feedback"`
}

type FeedbackStats struct {
	New        int `json:"new"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

type AdminStats struct {
	TotalUsers    int            `json:"total_users"`
	TotalFeedback int            `json:"total_feedback"`
	FeedbackStats *FeedbackStats `json:"feedback_stats"`
	GuestSessions int            `json:"guest_sessions"`
}

type UserList struct {
	Users []User `json:"users"`
}

type PasswordReset struct {
	TemporaryPassword string `json:"temporary_password"`
}

type GuestDevice struct {
	UserAgent    string `json:"user_agent"`
	Platform     string `json:"platform"`
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
}

type GuestLocation struct {
	City      string `json:"city"`
	Country   string `json:"country"`
	IPAddress string `json:"ip_address"`
}

type GuestSession struct {
	GuestID      ID             `json:"guest_id"`
	CreatedAt    string         `json:"created_at"`
	DeviceInfo   *GuestDevice   `json:"device_info"`
	LocationInfo *GuestLocation `json:"location_info"`
}

type GuestSessionList struct {
	Sessions []GuestSession `json:"sessions"`
}

type SanitySummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

type SanityResult struct {
	TestName   string  `json:"test_name"`
	Status     string  `json:"status"`
	DurationMS float64 `json:"duration_ms"`
	Message    string  `json:"message"`
}

type SanityReport struct {
	Summary *SanitySummary `json:"summary"`
	Results []SanityResult `json:"results"`
}

type Alert struct {
	ID              ID      `json:"id"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	EntryPrice      float64 `json:"entry_price"`
	StopLoss        float64 `json:"stop_loss"`
	TargetPrice     float64 `json:"target_price"`
	CurrentPrice    float64 `json:"current_price"`
	ChangePercent   float64 `json:"change_percent"`
	PotentialReturn float64 `json:"potential_return"`
	Rationale       string  `json:"rationale"`
	CreatedAt       string  `json:"created_at"`
}

type AlertList struct {
	Alerts []Alert `json:"alerts"`
}

type CreateAlertRequest struct {
	Symbol      string  `json:"symbol"`
	EntryPrice  float64 `json:"entry_price"`
	StopLoss    float64 `json:"stop_loss"`
	TargetPrice float64 `json:"target_price"`
	Rationale   *string `json:"rationale"`
	Exchange    string  `json:"exchange"`
}
