package models

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"stockadvisor/api"
	"stockadvisor/auth"
)

// resource names one fetchable section.
type resource int

const (
	resMarket resource = iota
	resPortfolio
	resWatchlist
	resPicks
	resAlerts
	resFeedback
	resStats
	resUsers
	resGuests
	resSanity
)

// Every result carries the session epoch it was requested under, so anything
// that lands after a logout or a new login is dropped. Exchange-scoped results
// also carry their exchange and are dropped once the user has switched.

type authCheckedMsg struct {
	epoch uint64
	user  *api.User
	err   error
}

type tokenMsg struct {
	epoch    uint64
	token    string
	guest    bool
	location auth.LocationStatus
	err      error
	fallback string
}

type ssoStartedMsg struct {
	flow *auth.SSOFlow
	err  error
}

type marketLoadedMsg struct {
	epoch      uint64
	exchange   string
	data       *api.MarketOverview
	err        error
	background bool
}

type portfolioLoadedMsg struct {
	epoch      uint64
	exchange   string
	data       *api.Portfolio
	err        error
	background bool
}

type watchlistLoadedMsg struct {
	epoch      uint64
	exchange   string
	data       *api.Watchlist
	err        error
	background bool
}

type picksLoadedMsg struct {
	epoch      uint64
	exchange   string
	data       []api.Recommendation
	err        error
	background bool
}

type alertsLoadedMsg struct {
	epoch      uint64
	exchange   string
	data       *api.AlertList
	err        error
	background bool
}

type feedbackLoadedMsg struct {
	epoch uint64
	data  *api.FeedbackList
	err   error
}

type statsLoadedMsg struct {
	epoch uint64
	data  *api.AdminStats
	err   error
}

type usersLoadedMsg struct {
	epoch uint64
	data  *api.UserList
	err   error
}

type guestSessionsLoadedMsg struct {
	epoch uint64
	data  *api.GuestSessionList
	err   error
}

type sanityLoadedMsg struct {
	epoch uint64
	data  *api.SanityReport
	err   error
}

type quoteLoadedMsg struct {
	epoch  uint64
	symbol string
	data   *api.Stock
	err    error
}

// actionDoneMsg reports a finished mutation. The refresh it names is only
// issued once this arrives.
type actionDoneMsg struct {
	epoch   uint64
	notice  string
	prefix  string
	err     error
	refresh []resource
}

type clipboardMsg struct {
	what string
	text string
	err  error
}

func (m *AppModel) ctx() context.Context {
	if m.Context != nil {
		return m.Context
	}
	return context.Background()
}

// fetch returns the command that loads r for the current exchange.
func (m *AppModel) fetch(r resource, background bool) tea.Cmd {
	client, ctx := m.Client, m.ctx()
	epoch := m.Session.Epoch()
	ex := m.Session.Exchange().String()

	switch r {
	case resMarket:
		return func() tea.Msg {
			data, err := client.MarketOverview(ctx, ex)
			return marketLoadedMsg{epoch: epoch, exchange: ex, data: data, err: err, background: background}
		}
	case resPortfolio:
		return func() tea.Msg {
			data, err := client.Portfolio(ctx, ex)
			return portfolioLoadedMsg{epoch: epoch, exchange: ex, data: data, err: err, background: background}
		}
	case resWatchlist:
		return func() tea.Msg {
			data, err := client.Watchlist(ctx, ex)
			return watchlistLoadedMsg{epoch: epoch, exchange: ex, data: data, err: err, background: background}
		}
	case resPicks:
		return func() tea.Msg {
			data, err := client.Recommendations(ctx, ex)
			return picksLoadedMsg{epoch: epoch, exchange: ex, data: data, err: err, background: background}
		}
	case resAlerts:
		return func() tea.Msg {
			data, err := client.Alerts(ctx, ex)
			return alertsLoadedMsg{epoch: epoch, exchange: ex, data: data, err: err, background: background}
		}
	case resFeedback:
		filter := m.FeedbackFilter
		return func() tea.Msg {
			data, err := client.Feedback(ctx, filter)
			return feedbackLoadedMsg{epoch: epoch, data: data, err: err}
		}
	case resStats:
		return func() tea.Msg {
			data, err := client.AdminStats(ctx)
			return statsLoadedMsg{epoch: epoch, data: data, err: err}
		}
	case resUsers:
		return func() tea.Msg {
			data, err := client.Users(ctx)
			return usersLoadedMsg{epoch: epoch, data: data, err: err}
		}
	case resGuests:
		return func() tea.Msg {
			data, err := client.GuestSessions(ctx)
			return guestSessionsLoadedMsg{epoch: epoch, data: data, err: err}
		}
	case resSanity:
		return func() tea.Msg {
			data, err := client.SanityResults(ctx)
			return sanityLoadedMsg{epoch: epoch, data: data, err: err}
		}
	}
	return nil
}

func (m *AppModel) fetchAll(rs ...resource) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(rs))
	for _, r := range rs {
		cmds = append(cmds, m.fetch(r, false))
	}
	return tea.Batch(cmds...)
}

// loadAllDataCmd fetches what the main screen needs right after sign-in or an
// exchange change.
func (m *AppModel) loadAllDataCmd() tea.Cmd {
	return m.fetchAll(resMarket, resPortfolio, resWatchlist, resPicks)
}

func (m *AppModel) checkAuthCmd() tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	return func() tea.Msg {
		user, err := client.Me(ctx)
		return authCheckedMsg{epoch: epoch, user: user, err: err}
	}
}

func (m *AppModel) loginCmd(email, password string) tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	return func() tea.Msg {
		tok, err := client.Login(ctx, email, password)
		if err != nil {
			return tokenMsg{epoch: epoch, err: err, fallback: "Login failed"}
		}
		return tokenMsg{epoch: epoch, token: tok.AccessToken}
	}
}

func (m *AppModel) registerCmd(req api.RegisterRequest) tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	return func() tea.Msg {
		tok, err := client.Register(ctx, req)
		if err != nil {
			return tokenMsg{epoch: epoch, err: err, fallback: "Registration failed"}
		}
		return tokenMsg{epoch: epoch, token: tok.AccessToken}
	}
}

// guestLoginCmd enriches the device info as best it can, then signs in. A
// failed lookup only degrades the location; it never blocks the login.
func (m *AppModel) guestLoginCmd() tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	store, locator, logger := m.Store, m.Locator, m.logger
	return func() tea.Msg {
		deviceID, err := store.DeviceID()
		if err != nil {
			logger.Warn().Err(err).Msg("no device id")
		}
		info := auth.CollectDeviceInfo(deviceID)

		status := auth.LocationUnavailable
		if locator != nil {
			loc := locator.Locate(ctx, info.Timezone)
			auth.ApplyLocation(&info, loc)
			status = loc.Status
		}

		tok, err := client.Guest(ctx, info)
		if err != nil {
			return tokenMsg{epoch: epoch, err: err, fallback: "Guest login failed"}
		}
		return tokenMsg{epoch: epoch, token: tok.AccessToken, guest: true, location: status}
	}
}

func (m *AppModel) startSSOCmd(provider string) tea.Cmd {
	sso := m.SSO
	return func() tea.Msg {
		if sso == nil {
			return ssoStartedMsg{err: errors.New("single sign-on is not configured")}
		}
		flow, err := sso.Start(provider)
		return ssoStartedMsg{flow: flow, err: err}
	}
}

func (m *AppModel) waitSSOCmd(flow *auth.SSOFlow) tea.Cmd {
	ctx, epoch := m.ctx(), m.Session.Epoch()
	return func() tea.Msg {
		token, err := flow.Wait(ctx)
		if err != nil {
			return tokenMsg{epoch: epoch, err: err, fallback: "Sign-in failed"}
		}
		return tokenMsg{epoch: epoch, token: token}
	}
}

func (m *AppModel) quoteCmd(symbol string) tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	ex := m.Session.Exchange().String()
	return func() tea.Msg {
		data, err := client.Quote(ctx, symbol, ex)
		return quoteLoadedMsg{epoch: epoch, symbol: symbol, data: data, err: err}
	}
}

func (m *AppModel) searchCmd(tick searchTickMsg) tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	ex := m.Session.Exchange().String()
	return func() tea.Msg {
		data, err := client.SearchStocks(ctx, tick.query, ex)
		return searchResultsMsg{epoch: epoch, seq: tick.seq, data: data, err: err}
	}
}

func (m *AppModel) runSanityCmd() tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	return func() tea.Msg {
		data, err := client.RunSanity(ctx)
		return sanityLoadedMsg{epoch: epoch, data: data, err: err}
	}
}

// action wraps one mutating call. notice is shown on success; failures are
// shown as prefix + the backend message.
func (m *AppModel) action(call func(context.Context, *api.Client) (string, error), prefix string, refresh ...resource) tea.Cmd {
	client, ctx, epoch := m.Client, m.ctx(), m.Session.Epoch()
	return func() tea.Msg {
		notice, err := call(ctx, client)
		return actionDoneMsg{epoch: epoch, notice: notice, prefix: prefix, err: err, refresh: refresh}
	}
}

func (m *AppModel) copyCmd(what, text string) tea.Cmd {
	copyFn := m.Clipboard
	return func() tea.Msg {
		if copyFn == nil {
			return clipboardMsg{what: what, text: text, err: errors.New("clipboard unavailable")}
		}
		return clipboardMsg{what: what, text: text, err: copyFn(text)}
	}
}
