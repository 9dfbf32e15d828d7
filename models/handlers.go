package models

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"stockadvisor/api"
)

func (m *AppModel) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		m.closeSSO()
		return tea.Quit
	}

	if m.Modal != nil {
		return m.handleModalKeys(msg)
	}

	switch m.State {
	case StateAuth:
		return m.handleAuthKeys(msg)
	case StateAuthenticating:
		return nil
	}

	if m.Search.Focused {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "ctrl+l":
		m.logger.Info().Msg("signed out")
		return m.endSession("You have been signed out.")
	case "tab", "right":
		return m.stepTab(1)
	case "shift+tab", "left":
		return m.stepTab(-1)
	case "1", "2", "3", "4", "5", "6", "7", "8":
		tabs := m.visibleTabs()
		if i := int(msg.String()[0] - '1'); i < len(tabs) {
			return m.setTab(tabs[i])
		}
		return nil
	case "/":
		return m.Search.Focus()
	case "c":
		return m.changeExchange()
	case "?":
		m.Modal = &Modal{Kind: modalHelp, Title: "Keys", Body: helpText}
		return nil
	case "r", "f5":
		m.follow = true
		return m.fetchTab(m.Tab)
	case "up", "k":
		m.moveCursor(-1)
		return nil
	case "down", "j":
		m.moveCursor(1)
		return nil
	case "pgup":
		m.body.HalfViewUp()
		return nil
	case "pgdown":
		m.body.HalfViewDown()
		return nil
	case "f":
		return m.openFeedbackForm()
	}

	switch m.Tab {
	case TabMarkets, TabAIPicks:
		return m.handleStockListKeys(msg)
	case TabPortfolio:
		return m.handlePortfolioKeys(msg)
	case TabWatchlist:
		return m.handleWatchlistKeys(msg)
	case TabAlerts:
		return m.handleAlertKeys(msg)
	case TabFeedback:
		return m.handleFeedbackKeys(msg)
	case TabAdmin:
		return m.handleAdminKeys(msg)
	case TabSanity:
		return m.handleSanityKeys(msg)
	}
	return nil
}

func (m *AppModel) stepTab(delta int) tea.Cmd {
	tabs := m.visibleTabs()
	i := 0
	for j, t := range tabs {
		if t == m.Tab {
			i = j
		}
	}
	return m.setTab(tabs[(i+delta+len(tabs))%len(tabs)])
}

func (m *AppModel) rowCount() int {
	switch m.Tab {
	case TabMarkets:
		if m.Market != nil {
			return len(m.Market.Stocks)
		}
	case TabPortfolio:
		if m.Portfolio != nil {
			return len(m.Portfolio.Holdings)
		}
	case TabWatchlist:
		if m.Watchlist != nil {
			return len(m.Watchlist.Stocks)
		}
	case TabAlerts:
		if m.Alerts != nil {
			return len(m.Alerts.Alerts)
		}
	case TabAIPicks:
		return len(m.Picks)
	case TabFeedback:
		if m.Feedback != nil {
			return len(m.Feedback.Feedback)
		}
	case TabAdmin:
		if m.Users != nil {
			return len(m.Users.Users)
		}
	}
	return 0
}

func (m *AppModel) moveCursor(delta int) {
	if n := m.rowCount(); n > 0 {
		m.Cursor = clamp(m.Cursor+delta, 0, n-1)
		m.follow = true
		return
	}
	if delta < 0 {
		m.body.LineUp(1)
	} else {
		m.body.LineDown(1)
	}
}

// selectedStock returns the highlighted row of the market, picks or watchlist
// tab as a stock.
func (m *AppModel) selectedStock() (api.Stock, bool) {
	switch m.Tab {
	case TabMarkets:
		if m.Market != nil && m.Cursor < len(m.Market.Stocks) {
			return m.Market.Stocks[m.Cursor], true
		}
	case TabWatchlist:
		if m.Watchlist != nil && m.Cursor < len(m.Watchlist.Stocks) {
			return m.Watchlist.Stocks[m.Cursor], true
		}
	case TabAIPicks:
		if m.Cursor < len(m.Picks) {
			r := m.Picks[m.Cursor]
			return api.Stock{Symbol: r.Symbol, CurrentPrice: r.CurrentPrice, TradingViewURL: r.TradingViewURL}, true
		}
	}
	return api.Stock{}, false
}

func (m *AppModel) handleStockListKeys(msg tea.KeyMsg) tea.Cmd {
	s, ok := m.selectedStock()
	if !ok {
		return nil
	}
	switch msg.String() {
	case "enter", " ":
		return m.openQuote(s.Symbol)
	case "p":
		return m.openPortfolioForm(s.Symbol, 10, s.CurrentPrice, false)
	case "w":
		return m.addToWatchlist(s.Symbol)
	case "t":
		return m.copyTradingView(s.Symbol, s.TradingViewURL)
	}
	return nil
}

func (m *AppModel) handlePortfolioKeys(msg tea.KeyMsg) tea.Cmd {
	if m.Portfolio == nil || m.Cursor >= len(m.Portfolio.Holdings) {
		return nil
	}
	h := m.Portfolio.Holdings[m.Cursor]
	switch msg.String() {
	case "enter", " ":
		return m.openQuote(h.Symbol)
	case "e":
		return m.openPortfolioForm(h.Symbol, h.Quantity, h.AverageCost, true)
	case "x", "delete":
		ex, symbol := m.Session.Exchange().String(), h.Symbol
		m.confirm(fmt.Sprintf("Remove %s from portfolio?", symbol), m.action(
			func(ctx context.Context, c *api.Client) (string, error) {
				return "", c.RemoveHolding(ctx, ex, symbol)
			}, "Failed to remove holding: ", resPortfolio))
	case "t":
		return m.copyTradingView(h.Symbol, h.TradingViewURL)
	}
	return nil
}

func (m *AppModel) handleWatchlistKeys(msg tea.KeyMsg) tea.Cmd {
	s, ok := m.selectedStock()
	if !ok {
		return nil
	}
	switch msg.String() {
	case "x", "delete":
		ex, symbol := m.Session.Exchange().String(), s.Symbol
		return m.action(func(ctx context.Context, c *api.Client) (string, error) {
			return "", c.RemoveFromWatchlist(ctx, ex, symbol)
		}, "Failed to remove from watchlist: ", resWatchlist)
	}
	return m.handleStockListKeys(msg)
}

func (m *AppModel) handleAlertKeys(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "n" {
		return m.openAlertForm()
	}
	if m.Alerts == nil || m.Cursor >= len(m.Alerts.Alerts) {
		return nil
	}
	a := m.Alerts.Alerts[m.Cursor]
	switch msg.String() {
	case "enter", " ":
		return m.openQuote(a.Symbol)
	case "x", "delete":
		id := a.ID.String()
		m.confirm("Are you sure you want to delete this alert?", m.action(
			func(ctx context.Context, c *api.Client) (string, error) {
				return "", c.DeleteAlert(ctx, id)
			}, "Failed to delete alert: ", resAlerts))
	case "v":
		if a.Rationale != "" {
			m.notice(a.Symbol+" · Rationale", a.Rationale)
		}
	case "b":
		return m.openPortfolioForm(a.Symbol, 10, AlertPrice(a), false)
	case "t":
		return m.copyTradingView(a.Symbol, "")
	}
	return nil
}

func (m *AppModel) handleFeedbackKeys(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "s" {
		for i, f := range FeedbackFilters {
			if f == m.FeedbackFilter {
				m.FeedbackFilter = FeedbackFilters[(i+1)%len(FeedbackFilters)]
				break
			}
		}
		m.Cursor = 0
		m.follow = true
		return m.fetch(resFeedback, false)
	}
	if m.Feedback == nil || m.Cursor >= len(m.Feedback.Feedback) {
		return nil
	}
	item := m.Feedback.Feedback[m.Cursor]
	switch msg.String() {
	case "a":
		next, _, ok := NextFeedbackStatus(item.Status)
		if !ok {
			return nil
		}
		id := item.ID.String()
		return m.action(func(ctx context.Context, c *api.Client) (string, error) {
			return "", c.UpdateFeedbackStatus(ctx, id, next)
		}, "Failed to update feedback: ", resFeedback, resStats)
	case "x", "delete":
		id := item.ID.String()
		m.confirm("Delete this feedback?", m.action(
			func(ctx context.Context, c *api.Client) (string, error) {
				return "", c.DeleteFeedback(ctx, id)
			}, "Failed to delete feedback: ", resFeedback, resStats))
	}
	return nil
}

func (m *AppModel) handleAdminKeys(msg tea.KeyMsg) tea.Cmd {
	if m.Users == nil || m.Cursor >= len(m.Users.Users) {
		return nil
	}
	u := m.Users.Users[m.Cursor]
	email := u.Email
	switch msg.String() {
	case "u":
		active := !u.IsActive
		return m.action(func(ctx context.Context, c *api.Client) (string, error) {
			return "", c.SetUserActive(ctx, email, active)
		}, "Failed to update user: ", resUsers, resStats)
	case "p":
		m.confirm(fmt.Sprintf("Reset password for %s?", email), m.action(
			func(ctx context.Context, c *api.Client) (string, error) {
				pw, err := c.ResetPassword(ctx, email)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Password reset! New temporary password: %s\n\nPlease share this securely with the user.", pw), nil
			}, "Failed to reset password: ", resUsers))
	}
	return nil
}

func (m *AppModel) handleSanityKeys(msg tea.KeyMsg) tea.Cmd {
	if msg.String() != "s" || m.SanityRunning {
		return nil
	}
	m.SanityRunning = true
	m.SanityErr = ""
	return m.runSanityCmd()
}

func (m *AppModel) handleSearchKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.Search.Reset()
		return nil
	case "up":
		m.Search.Move(-1)
		return nil
	case "down":
		m.Search.Move(1)
		return nil
	case "enter":
		symbol, ok := m.Search.Selected()
		if !ok {
			return nil
		}
		m.Search.Reset()
		return m.openQuote(symbol)
	}
	return m.Search.Update(msg)
}

func (m *AppModel) handleAuthKeys(msg tea.KeyMsg) tea.Cmd {
	f := m.AuthForm
	switch msg.String() {
	case "tab", "down":
		return f.Next()
	case "shift+tab", "up":
		return f.Prev()
	case "enter":
		if !f.OnLast() {
			return f.Next()
		}
		return m.submitAuth()
	case "ctrl+r":
		m.Registering = !m.Registering
		m.AuthError, m.AuthNotice = "", ""
		if m.Registering {
			m.AuthForm = newRegisterForm()
		} else {
			m.AuthForm = newLoginForm()
		}
		return nil
	case "ctrl+g":
		m.State = StateAuthenticating
		m.AuthError = ""
		m.AuthNotice = "Detecting your location and signing in as guest..."
		return m.guestLoginCmd()
	case "ctrl+o":
		return m.beginSSO("google")
	case "ctrl+t":
		return m.beginSSO("microsoft")
	case "esc":
		m.AuthError, m.AuthNotice = "", ""
		return nil
	}
	return f.Update(msg)
}

func (m *AppModel) beginSSO(provider string) tea.Cmd {
	m.State = StateAuthenticating
	m.AuthError = ""
	m.AuthNotice = "Starting " + provider + " sign-in..."
	return m.startSSOCmd(provider)
}

func (m *AppModel) submitAuth() tea.Cmd {
	f := m.AuthForm
	if m.Registering {
		req := api.RegisterRequest{
			FirstName: f.Value(regFirstName),
			LastName:  f.Value(regLastName),
			Email:     f.Value(regEmail),
			Password:  f.Raw(regPassword),
		}
		if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
			m.AuthError = "Please fill in all fields"
			return nil
		}
		m.State = StateAuthenticating
		m.AuthError, m.AuthNotice = "", "Creating your account..."
		return m.registerCmd(req)
	}

	email, password := f.Value(loginEmail), f.Raw(loginPassword)
	if email == "" || password == "" {
		m.AuthError = "Please enter your email and password"
		return nil
	}
	m.State = StateAuthenticating
	m.AuthError, m.AuthNotice = "", "Signing in..."
	return m.loginCmd(email, password)
}

func (m *AppModel) handleModalKeys(msg tea.KeyMsg) tea.Cmd {
	md := m.Modal
	key := msg.String()

	switch md.Kind {
	case modalConfirm:
		switch key {
		case "y", "enter":
			m.Modal = nil
			return md.onConfirm
		case "n", "esc":
			m.Modal = nil
		}
		return nil

	case modalSSO:
		if key == "esc" {
			// The pending Wait reports the cancellation.
			m.closeSSO()
		}
		return nil

	case modalForm:
		switch key {
		case "esc":
			m.Modal = nil
			return nil
		case "tab", "down":
			return md.Form.Next()
		case "shift+tab", "up":
			return md.Form.Prev()
		case "enter":
			if !md.Form.OnLast() {
				return md.Form.Next()
			}
			cmd := md.onSubmit(md.Form)
			if md.Form.Error == "" {
				m.Modal = nil
			}
			return cmd
		}
		return md.Form.Update(msg)

	case modalQuote:
		switch key {
		case "p":
			price := 0.0
			if md.Quote != nil {
				price = md.Quote.CurrentPrice
			}
			return m.openPortfolioForm(md.Symbol, 10, price, false)
		case "w":
			m.Modal = nil
			return m.addToWatchlist(md.Symbol)
		case "t":
			url := ""
			if md.Quote != nil {
				url = md.Quote.TradingViewURL
			}
			return m.copyTradingView(md.Symbol, url)
		case "esc", "enter", "q":
			m.Modal = nil
		}
		return nil
	}

	switch key {
	case "esc", "enter", "q", " ":
		m.Modal = nil
	}
	return nil
}

func (m *AppModel) openQuote(symbol string) tea.Cmd {
	m.Modal = &Modal{Kind: modalQuote, Title: symbol, Symbol: symbol}
	return m.quoteCmd(symbol)
}

func (m *AppModel) addToWatchlist(symbol string) tea.Cmd {
	ex := m.Session.Exchange().String()
	return m.action(func(ctx context.Context, c *api.Client) (string, error) {
		if err := c.AddToWatchlist(ctx, ex, symbol); err != nil {
			return "", err
		}
		return symbol + " added to watchlist!", nil
	}, "Failed to add to watchlist: ", resWatchlist)
}

func (m *AppModel) copyTradingView(symbol, url string) tea.Cmd {
	return m.copyCmd("TradingView link", TradingViewURL(symbol, url))
}

func (m *AppModel) openPortfolioForm(symbol string, qty, price float64, editing bool) tea.Cmd {
	ex := m.Session.Exchange().String()
	f := newPortfolioForm(symbol, qty, price, editing)
	m.Modal = &Modal{Kind: modalForm, Form: f, onSubmit: func(f *Form) tea.Cmd {
		quantity := float64(f.Whole(pfQuantity))
		if quantity == 0 {
			quantity = 1
		}
		avg := f.Float(pfPrice)

		notice := symbol + " added to portfolio!"
		if editing {
			notice = symbol + " updated in portfolio!"
		}
		return m.action(func(ctx context.Context, c *api.Client) (string, error) {
			if err := c.AddHolding(ctx, ex, symbol, quantity, avg); err != nil {
				return "", err
			}
			return notice, nil
		}, "Failed to add to portfolio: ", resPortfolio)
	}}
	return nil
}

func (m *AppModel) openAlertForm() tea.Cmd {
	ex := m.Session.Exchange().String()
	f := newAlertForm(m.currency())
	m.Modal = &Modal{Kind: modalForm, Form: f, onSubmit: func(f *Form) tea.Cmd {
		req := api.CreateAlertRequest{
			Symbol:      strings.ToUpper(f.Value(alSymbol)),
			EntryPrice:  f.Float(alEntry),
			StopLoss:    f.Float(alStop),
			TargetPrice: f.Float(alTarget),
			Exchange:    ex,
		}
		if r := f.Value(alRationale); r != "" {
			req.Rationale = &r
		}
		if err := ValidateAlert(req); err != nil {
			f.Error = err.Error()
			return nil
		}
		f.Error = ""
		return m.action(func(ctx context.Context, c *api.Client) (string, error) {
			if err := c.CreateAlert(ctx, req); err != nil {
				return "", err
			}
			return "Stock alert created successfully!", nil
		}, "Failed to create alert: ", resAlerts)
	}}
	return nil
}

func (m *AppModel) openFeedbackForm() tea.Cmd {
	page := "tui/" + m.Tab.slug()
	refresh := []resource{}
	if m.Tab == TabFeedback {
		refresh = append(refresh, resFeedback)
	}

	f := newFeedbackForm()
	m.Modal = &Modal{Kind: modalForm, Form: f, onSubmit: func(f *Form) tea.Cmd {
		kind, message := f.Value(fbType), f.Value(fbMessage)
		if message == "" {
			f.Error = "Please enter your feedback"
			return nil
		}
		f.Error = ""
		return m.action(func(ctx context.Context, c *api.Client) (string, error) {
			if err := c.SubmitFeedback(ctx, kind, message, page); err != nil {
				return "", err
			}
			return "Feedback submitted! Thank you.", nil
		}, "Failed to submit feedback: ", refresh...)
	}}
	return nil
}

const helpText = `Navigation
  tab / shift+tab, 1-8   switch tabs
  ↑ ↓ / j k              move selection
  pgup / pgdown          scroll
  /                      search stocks
  c                      change exchange
  r / f5                 refresh
  f                      send feedback
  ctrl+l                 sign out
  q / ctrl+c             quit

Stocks
  enter   details        p   add to portfolio
  w       watchlist      t   copy TradingView link

Portfolio
  e       edit holding   x   remove holding

Alerts
  n       new alert      x   delete alert
  v       rationale      b   buy at alert price

Admin
  a       advance feedback    s   cycle filter / run sanity tests
  u       enable/disable user p   reset password`
