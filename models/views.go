package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stockadvisor/ui"
)

func (m *AppModel) View() string {
	var screen string
	switch m.State {
	case StateAuth:
		screen = m.authView()
	case StateAuthenticating:
		screen = m.authenticatingView()
	default:
		screen = m.appView()
	}

	if m.Modal == nil {
		return screen
	}
	if m.Width == 0 || m.Height == 0 {
		return screen + "\n" + m.modalView()
	}
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, m.modalView())
}

func (m *AppModel) authView() string {
	title := ui.TitleStyle.Render("📈 STOCKADVISOR")

	var content strings.Builder
	if m.AuthNotice != "" {
		content.WriteString(ui.InfoStyle.Render(m.AuthNotice) + "\n\n")
	}
	if m.AuthError != "" {
		content.WriteString(ui.NegativeStyle.Render("❌ "+m.AuthError) + "\n\n")
	}
	content.WriteString(m.AuthForm.View())

	content.WriteString("\n")
	if m.Registering {
		content.WriteString(ui.MutedStyle.Render("Already have an account? ctrl+r to sign in") + "\n")
	} else {
		content.WriteString(ui.MutedStyle.Render("New here? ctrl+r to create an account") + "\n")
	}
	content.WriteString(ui.MutedStyle.Render("ctrl+g continue as guest · ctrl+o Google · ctrl+t Microsoft"))

	footer := ui.InfoStyle.Render("tab/↑↓ move between fields · enter submit · ctrl+c quit")
	return fmt.Sprintf("%s\n%s\n%s", title, ui.MenuStyle.Render(content.String()), footer)
}

func (m *AppModel) authenticatingView() string {
	title := ui.TitleStyle.Render("📈 STOCKADVISOR")
	msg := m.AuthNotice
	if msg == "" {
		msg = "Checking your session..."
	}
	return fmt.Sprintf("%s\n%s", title, ui.MenuStyle.Render(ui.LoadingStyle.Render("🔄 "+msg)))
}

func (m *AppModel) headerView() string {
	ex := m.Session.Exchange()
	cur := ex.Currency()

	parts := []string{
		ui.TitleStyle.Render("📈 STOCKADVISOR"),
		ui.BadgeStyle.Render(fmt.Sprintf("%s · %s %s", ex, cur.Symbol, cur.Code)),
	}
	if u := m.Session.User(); u != nil {
		parts = append(parts, ui.BadgeStyle.Render(m.Session.Initials()), ui.MutedStyle.Render(u.Email))
		if m.isAdmin() {
			parts = append(parts, ui.WarningStyle.Render("ADMIN"))
		}
	}
	return strings.Join(parts, " ")
}

func (m *AppModel) tabsView() string {
	var tabs []string
	for i, t := range m.visibleTabs() {
		label := fmt.Sprintf("%d %s", i+1, tabTitles[t])
		if t == m.Tab {
			tabs = append(tabs, ui.ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, ui.TabStyle.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func (m *AppModel) searchView() string {
	if !m.Search.Focused && m.Search.Input.Value() == "" {
		return ui.MutedStyle.Render("/ search stocks")
	}
	return m.Search.Input.View()
}

// searchPanelView replaces the body while search results are showing.
func (m *AppModel) searchPanelView() string {
	switch {
	case m.Search.Loading:
		return ui.LoadingStyle.Render("🔄 Searching...")
	case m.Search.Err != "":
		return ErrorState(m.Search.Err)
	}
	return RenderSearchResults(m.Search.Results, m.Search.Cursor)
}

func loadingState(what string) string {
	return ui.LoadingStyle.Render("🔄 Loading " + what + "...")
}

// renderBody renders the active tab into the scrollable section.
func (m *AppModel) renderBody() string {
	cur := m.currency()

	switch m.Tab {
	case TabMarkets:
		switch {
		case m.MarketErr != "":
			return ErrorState(m.MarketErr)
		case m.Market == nil:
			return loadingState("market data")
		}
		return RenderMarket(m.Market, cur, m.Cursor)

	case TabPortfolio:
		if m.Portfolio == nil {
			return loadingState("portfolio")
		}
		return RenderPortfolio(m.Portfolio, cur, m.Cursor)

	case TabWatchlist:
		if m.Watchlist == nil {
			return loadingState("watchlist")
		}
		return RenderWatchlist(m.Watchlist, cur, m.Cursor)

	case TabAlerts:
		switch {
		case m.AlertsErr != "":
			return ErrorState(m.AlertsErr)
		case m.Alerts == nil:
			return loadingState("alerts")
		}
		return RenderAlerts(m.Alerts, cur, m.Cursor)

	case TabAIPicks:
		switch {
		case m.PicksErr != "":
			return ErrorState(m.PicksErr)
		case m.Picks == nil:
			return loadingState("recommendations")
		}
		return RenderAIPicks(m.Picks, cur, m.Cursor)

	case TabFeedback:
		if m.FeedbackErr != "" {
			return ErrorState(m.FeedbackErr)
		}
		return RenderFeedback(m.Feedback, m.FeedbackFilter, m.Cursor)

	case TabAdmin:
		var b strings.Builder
		b.WriteString(RenderAdminStats(m.Stats) + "\n\n")
		b.WriteString(ui.HeaderStyle.Render("Users") + "\n")
		if m.UsersErr != "" {
			b.WriteString(ErrorState(m.UsersErr))
		} else {
			b.WriteString(RenderUsers(m.Users, m.Cursor))
		}
		b.WriteString("\n\n" + ui.HeaderStyle.Render("Guest Sessions") + "\n")
		if m.GuestsErr != "" {
			b.WriteString(ErrorState(m.GuestsErr))
		} else {
			b.WriteString(RenderGuestSessions(m.Guests))
		}
		return b.String()

	case TabSanity:
		if m.SanityRunning {
			return ui.LoadingStyle.Render("🔄 Running sanity tests...")
		}
		if m.SanityErr != "" {
			return ErrorState(m.SanityErr)
		}
		return RenderSanity(m.Sanity)
	}
	return ""
}

var tabHints = map[Tab]string{
	TabMarkets:   "enter details · p portfolio · w watchlist · t TradingView",
	TabPortfolio: "enter details · e edit · x remove · t TradingView",
	TabWatchlist: "enter details · p portfolio · x remove · t TradingView",
	TabAlerts:    "n new alert · x delete · v rationale · b buy",
	TabAIPicks:   "enter details · p portfolio · w watchlist · t TradingView",
	TabFeedback:  "a advance status · x delete · s filter",
	TabAdmin:     "u enable/disable · p reset password",
	TabSanity:    "s run tests",
}

func (m *AppModel) footerView() string {
	hint := tabHints[m.Tab]
	if m.Search.Focused {
		hint = "↑↓ select · enter details · esc close"
	}
	if m.refresh.Active() {
		hint += " · auto-refresh " + m.refresh.Interval().String()
	}
	return ui.InfoStyle.Render(hint + " · c exchange · f feedback · ? help · q quit")
}

func (m *AppModel) appView() string {
	body := m.body.View()
	if m.Search.Visible {
		body = m.searchPanelView()
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		m.headerView(),
		m.tabsView(),
		m.searchView(),
		body,
		m.footerView(),
	)
}

func (m *AppModel) modalView() string {
	md := m.Modal
	var content strings.Builder

	switch md.Kind {
	case modalForm:
		content.WriteString(md.Form.View())
		content.WriteString("\n" + ui.MutedStyle.Render("tab next field · enter submit · esc cancel"))

	case modalConfirm:
		content.WriteString(ui.HeaderStyle.Render(md.Title) + "\n\n")
		content.WriteString(md.Body + "\n\n")
		content.WriteString(ui.MutedStyle.Render("y confirm · n cancel"))

	case modalQuote:
		content.WriteString(ui.HeaderStyle.Render(md.Symbol) + "\n\n")
		switch {
		case md.QuoteErr != "":
			content.WriteString(ErrorState(md.QuoteErr))
		case md.Quote == nil:
			content.WriteString(loadingState(md.Symbol))
		default:
			content.WriteString(RenderQuote(md.Symbol, md.Quote, m.currency(), m.Session.Exchange().String()))
		}
		content.WriteString("\n\n" + ui.MutedStyle.Render("p add to portfolio · w watchlist · t copy TradingView link · esc close"))

	case modalSSO:
		content.WriteString(ui.HeaderStyle.Render(md.Title) + "\n\n")
		content.WriteString(md.Body + "\n\n")
		content.WriteString(ui.LoadingStyle.Render("🔄 Waiting for sign-in...") + "\n")
		content.WriteString(ui.MutedStyle.Render("esc cancel"))

	default:
		title := ui.HeaderStyle.Render(md.Title)
		body := md.Body
		if md.Error {
			title = ui.NegativeStyle.Render("❌ " + md.Title)
			body = ui.NegativeStyle.Render(body)
		}
		content.WriteString(title + "\n\n" + body + "\n\n")
		content.WriteString(ui.MutedStyle.Render("enter/esc close"))
	}

	return ui.ModalStyle.Render(content.String())
}
