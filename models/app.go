package models

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockadvisor/api"
	"stockadvisor/auth"
	"stockadvisor/config"
)

// App states
type AppState int

const (
	StateAuth AppState = iota
	StateAuthenticating
	StateApp
)

type Tab int

const (
	TabMarkets Tab = iota
	TabPortfolio
	TabWatchlist
	TabAlerts
	TabAIPicks
	TabFeedback
	TabAdmin
	TabSanity
)

var tabTitles = map[Tab]string{
	TabMarkets:   "📊 Markets",
	TabPortfolio: "💼 Portfolio",
	TabWatchlist: "👀 Watchlist",
	TabAlerts:    "🔔 Alerts",
	TabAIPicks:   "🤖 AI Picks",
	TabFeedback:  "💬 Feedback",
	TabAdmin:     "🛠 Admin",
	TabSanity:    "🧪 Sanity",
}

// slug names the tab in feedback submissions.
func (t Tab) slug() string {
	return [...]string{"markets", "portfolio", "watchlist", "alerts", "ai-picks", "feedback", "admin", "sanity"}[t]
}

func (t Tab) adminOnly() bool {
	return t >= TabFeedback
}

type modalKind int

const (
	modalMessage modalKind = iota
	modalConfirm
	modalQuote
	modalForm
	modalSSO
	modalHelp
)

// Modal is whatever currently covers the main screen.
type Modal struct {
	Kind  modalKind
	Title string
	Body  string
	Error bool

	onConfirm tea.Cmd

	Form     *Form
	onSubmit func(*Form) tea.Cmd

	Symbol   string
	Quote    *api.Stock
	QuoteErr string
}

// Options wires the model to its collaborators.
type Options struct {
	Config    *config.Config
	Client    *api.Client
	Session   *auth.Session
	Store     *auth.Store
	Locator   *auth.Locator
	SSO       *auth.SSO
	Clipboard func(string) error
	Context   context.Context
}

type AppModel struct {
	Config    *config.Config
	Client    *api.Client
	Session   *auth.Session
	Store     *auth.Store
	Locator   *auth.Locator
	SSO       *auth.SSO
	Clipboard func(string) error
	Context   context.Context

	State  AppState
	Tab    Tab
	Cursor int
	Width  int
	Height int

	Market      *api.MarketOverview
	MarketErr   string
	Portfolio   *api.Portfolio
	Watchlist   *api.Watchlist
	Picks       []api.Recommendation
	PicksErr    string
	Alerts      *api.AlertList
	AlertsErr   string
	Feedback    *api.FeedbackList
	FeedbackErr string
	Stats       *api.AdminStats
	Users       *api.UserList
	UsersErr    string
	Guests      *api.GuestSessionList
	GuestsErr   string
	Sanity      *api.SanityReport
	SanityErr   string

	FeedbackFilter string
	SanityRunning  bool

	Modal  *Modal
	Search SearchBox

	AuthForm    *Form
	Registering bool
	AuthError   string
	AuthNotice  string
	ssoFlow     *auth.SSOFlow

	refresh *AutoRefresh
	body    viewport.Model
	follow  bool
	logger  zerolog.Logger
}

const chromeLines = 9

func NewAppModel(opts Options) *AppModel {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	return &AppModel{
		Config:    cfg,
		Client:    opts.Client,
		Session:   opts.Session,
		Store:     opts.Store,
		Locator:   opts.Locator,
		SSO:       opts.SSO,
		Clipboard: opts.Clipboard,
		Context:   opts.Context,
		State:     StateAuth,
		Search:    NewSearchBox(cfg.SearchDebounce),
		AuthForm:  newLoginForm(),
		refresh:   NewAutoRefresh(cfg.RefreshInterval, cfg.MaxRefresh),
		body:      viewport.New(80, 20),
		logger:    log.With().Str("component", "app").Logger(),
	}
}

// currency is the display symbol of the selected exchange.
func (m *AppModel) currency() string {
	return m.Session.Exchange().Currency().Symbol
}

func (m *AppModel) isAdmin() bool {
	return m.Session.IsAdmin(m.Config.AdminEmail)
}

// visibleTabs lists the tabs the signed-in user can see.
func (m *AppModel) visibleTabs() []Tab {
	admin := m.isAdmin()
	var tabs []Tab
	for t := TabMarkets; t <= TabSanity; t++ {
		if admin || !t.adminOnly() {
			tabs = append(tabs, t)
		}
	}
	return tabs
}

func (m *AppModel) setTab(t Tab) tea.Cmd {
	m.Tab = t
	m.Cursor = 0
	m.follow = true
	m.body.GotoTop()
	return m.fetchTab(t)
}

// fetchTab issues the fetches that populate tab t.
func (m *AppModel) fetchTab(t Tab) tea.Cmd {
	switch t {
	case TabMarkets:
		return m.fetch(resMarket, false)
	case TabPortfolio:
		return m.fetch(resPortfolio, false)
	case TabWatchlist:
		return m.fetch(resWatchlist, false)
	case TabAlerts:
		return m.fetch(resAlerts, false)
	case TabAIPicks:
		return m.fetch(resPicks, false)
	case TabFeedback:
		return m.fetch(resFeedback, false)
	case TabAdmin:
		return m.fetchAll(resStats, resUsers, resGuests)
	case TabSanity:
		return m.fetch(resSanity, false)
	}
	return nil
}

// autoResource is what the refresh ticker reloads for t. Admin tabs are not
// auto-refreshed.
func autoResource(t Tab) (resource, bool) {
	switch t {
	case TabMarkets:
		return resMarket, true
	case TabPortfolio:
		return resPortfolio, true
	case TabWatchlist:
		return resWatchlist, true
	case TabAlerts:
		return resAlerts, true
	case TabAIPicks:
		return resPicks, true
	}
	return 0, false
}

func (m *AppModel) clearData() {
	m.Market, m.MarketErr = nil, ""
	m.Portfolio = nil
	m.Watchlist = nil
	m.Picks, m.PicksErr = nil, ""
	m.Alerts, m.AlertsErr = nil, ""
	m.Feedback, m.FeedbackErr = nil, ""
	m.Stats = nil
	m.Users, m.UsersErr = nil, ""
	m.Guests, m.GuestsErr = nil, ""
	m.Sanity, m.SanityErr = nil, ""
	m.SanityRunning = false
	m.Cursor = 0
}

func (m *AppModel) closeSSO() {
	if m.ssoFlow != nil {
		m.ssoFlow.Close()
		m.ssoFlow = nil
	}
}

// endSession signs out locally and returns to the sign-in screen. Requests
// still in flight belong to the old epoch and are dropped when they land.
func (m *AppModel) endSession(notice string) tea.Cmd {
	m.Session.End()
	m.refresh.Stop()
	m.closeSSO()
	m.Search.Reset()
	m.clearData()
	m.Modal = nil
	m.FeedbackFilter = ""
	m.Tab = TabMarkets
	m.State = StateAuth
	m.Registering = false
	m.AuthForm = newLoginForm()
	m.AuthError = ""
	m.AuthNotice = notice
	return textinput.Blink
}

// startApp moves a verified session onto the main screen.
func (m *AppModel) startApp(user *api.User) tea.Cmd {
	m.Session.SetUser(user)
	m.State = StateApp
	m.AuthError, m.AuthNotice = "", ""
	m.Tab = TabMarkets
	m.Cursor = 0
	m.follow = true

	m.logger.Info().Str("email", user.Email).Bool("admin", m.isAdmin()).Msg("signed in")
	return tea.Batch(m.loadAllDataCmd(), m.refresh.Start())
}

// changeExchange persists the next exchange and reloads everything.
func (m *AppModel) changeExchange() tea.Cmd {
	ex := m.Session.Exchange().Next()
	m.Session.SetExchange(ex)
	m.Search.Reset()
	m.clearData()
	m.follow = true

	cmds := []tea.Cmd{m.loadAllDataCmd()}
	switch m.Tab {
	case TabMarkets, TabPortfolio, TabWatchlist, TabAIPicks:
	default:
		cmds = append(cmds, m.fetchTab(m.Tab))
	}
	return tea.Batch(cmds...)
}

// outdated reports whether an exchange-scoped result belongs to an earlier
// session or exchange. A dropped background result still schedules the next
// refresh tick while the session is current.
func (m *AppModel) outdated(epoch uint64, exchange string, background bool) (bool, tea.Cmd) {
	if !m.Session.Current(epoch) {
		return true, nil
	}
	if exchange != m.Session.Exchange().String() {
		if background {
			return true, m.refresh.Continue()
		}
		return true, nil
	}
	return false, nil
}

// settle applies the failure policy to one fetch result and reports whether
// its payload should be shown. inline is nil for sections whose failures are
// only logged.
func (m *AppModel) settle(what string, err error, background bool, inline *string) (bool, tea.Cmd) {
	var cmd tea.Cmd
	if background {
		m.refresh.Record(err)
		cmd = m.refresh.Continue()
	}

	if err == nil {
		if inline != nil {
			*inline = ""
		}
		return true, cmd
	}

	if api.IsUnauthorized(err) {
		m.logger.Info().Str("resource", what).Msg("token rejected, signing out")
		return false, m.endSession("Your session has expired. Please sign in again.")
	}

	if background || inline == nil {
		m.logger.Warn().Err(err).Str("resource", what).Bool("background", background).Msg("fetch failed")
		if background {
			m.logger.Debug().Dur("next", m.refresh.Interval()).Msg("auto-refresh backing off")
		}
		return false, cmd
	}
	*inline = err.Error()
	return false, cmd
}

// authErrorText prefers the backend detail, falling back when it sent none.
func authErrorText(err error, fallback string) string {
	var apiErr *api.APIError
	if err == nil || errors.As(err, &apiErr) && apiErr.Detail == "" {
		return fallback
	}
	return err.Error()
}

func (m *AppModel) notice(title, body string) {
	m.Modal = &Modal{Kind: modalMessage, Title: title, Body: body}
}

func (m *AppModel) failure(body string) {
	m.Modal = &Modal{Kind: modalMessage, Title: "Error", Body: body, Error: true}
}

func (m *AppModel) confirm(question string, onConfirm tea.Cmd) {
	m.Modal = &Modal{Kind: modalConfirm, Title: "Confirm", Body: question, onConfirm: onConfirm}
}

// Bubble Tea interface methods
func (m *AppModel) Init() tea.Cmd {
	if m.Session.HasToken() {
		m.State = StateAuthenticating
		return m.checkAuthCmd()
	}
	return textinput.Blink
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.syncBody()
	return m, cmd
}

func (m *AppModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.body.Width = msg.Width
		m.body.Height = max(3, msg.Height-chromeLines)
		m.follow = true
		return nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case authCheckedMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Msg("stored session rejected")
			return m.endSession("")
		}
		return m.startApp(msg.user)

	case tokenMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		m.ssoFlow = nil
		if m.Modal != nil && m.Modal.Kind == modalSSO {
			m.Modal = nil
		}
		if msg.err != nil {
			m.State = StateAuth
			m.AuthNotice = ""
			m.AuthError = authErrorText(msg.err, msg.fallback)
			return nil
		}
		if msg.guest {
			m.logger.Info().Stringer("location", msg.location).Msg("guest session started")
		}
		m.Session.Begin(msg.token)
		m.State = StateAuthenticating
		return m.checkAuthCmd()

	case ssoStartedMsg:
		if msg.err != nil {
			m.State = StateAuth
			m.AuthError = msg.err.Error()
			return nil
		}
		m.ssoFlow = msg.flow
		m.State = StateAuthenticating
		body := "Open this link in your browser to continue:\n\n" + msg.flow.URL + "\n\n"
		if msg.flow.Copied {
			body += "The link has been copied to your clipboard."
		} else {
			body += "Could not copy the link. Please open it manually."
		}
		m.Modal = &Modal{Kind: modalSSO, Title: "Single Sign-On", Body: body}
		return m.waitSSOCmd(msg.flow)

	case refreshTickMsg:
		if !m.refresh.Owns(msg) || m.State != StateApp {
			return nil
		}
		if r, ok := autoResource(m.Tab); ok {
			return m.fetch(r, true)
		}
		return m.refresh.Continue()

	case searchTickMsg:
		if m.Search.Due(msg) {
			return m.searchCmd(msg)
		}
		return nil

	case searchResultsMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		if api.IsUnauthorized(msg.err) {
			return m.endSession("Your session has expired. Please sign in again.")
		}
		m.Search.Apply(msg)
		return nil

	case marketLoadedMsg:
		if drop, cmd := m.outdated(msg.epoch, msg.exchange, msg.background); drop {
			return cmd
		}
		ok, cmd := m.settle("market", msg.err, msg.background, &m.MarketErr)
		if ok {
			m.Market = msg.data
		}
		return cmd

	case portfolioLoadedMsg:
		if drop, cmd := m.outdated(msg.epoch, msg.exchange, msg.background); drop {
			return cmd
		}
		ok, cmd := m.settle("portfolio", msg.err, msg.background, nil)
		if ok {
			m.Portfolio = msg.data
		}
		return cmd

	case watchlistLoadedMsg:
		if drop, cmd := m.outdated(msg.epoch, msg.exchange, msg.background); drop {
			return cmd
		}
		ok, cmd := m.settle("watchlist", msg.err, msg.background, nil)
		if ok {
			m.Watchlist = msg.data
		}
		return cmd

	case picksLoadedMsg:
		if drop, cmd := m.outdated(msg.epoch, msg.exchange, msg.background); drop {
			return cmd
		}
		ok, cmd := m.settle("recommendations", msg.err, msg.background, &m.PicksErr)
		if ok {
			m.Picks = msg.data
		}
		return cmd

	case alertsLoadedMsg:
		if drop, cmd := m.outdated(msg.epoch, msg.exchange, msg.background); drop {
			return cmd
		}
		ok, cmd := m.settle("alerts", msg.err, msg.background, &m.AlertsErr)
		if ok {
			m.Alerts = msg.data
		}
		return cmd

	case feedbackLoadedMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		ok, cmd := m.settle("feedback", msg.err, false, &m.FeedbackErr)
		if ok {
			m.Feedback = msg.data
		}
		return cmd

	case statsLoadedMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		ok, cmd := m.settle("admin stats", msg.err, false, nil)
		if ok {
			m.Stats = msg.data
		}
		return cmd

	case usersLoadedMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		ok, cmd := m.settle("users", msg.err, false, &m.UsersErr)
		if ok {
			m.Users = msg.data
		}
		return cmd

	case guestSessionsLoadedMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		ok, cmd := m.settle("guest sessions", msg.err, false, &m.GuestsErr)
		if ok {
			m.Guests = msg.data
		}
		return cmd

	case sanityLoadedMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		m.SanityRunning = false
		ok, cmd := m.settle("sanity", msg.err, false, &m.SanityErr)
		if ok {
			m.Sanity = msg.data
		}
		return cmd

	case quoteLoadedMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		if api.IsUnauthorized(msg.err) {
			return m.endSession("Your session has expired. Please sign in again.")
		}
		if m.Modal == nil || m.Modal.Kind != modalQuote || m.Modal.Symbol != msg.symbol {
			return nil
		}
		if msg.err != nil {
			m.Modal.QuoteErr = msg.err.Error()
			return nil
		}
		m.Modal.Quote = msg.data
		return nil

	case actionDoneMsg:
		if !m.Session.Current(msg.epoch) {
			return nil
		}
		if msg.err != nil {
			if api.IsUnauthorized(msg.err) {
				return m.endSession("Your session has expired. Please sign in again.")
			}
			m.logger.Warn().Err(msg.err).Msg("action failed")
			m.failure(msg.prefix + msg.err.Error())
			return nil
		}
		if msg.notice != "" {
			m.notice("Done", msg.notice)
		}
		return m.fetchAll(msg.refresh...)

	case clipboardMsg:
		if msg.err != nil {
			m.failure("Could not copy the " + msg.what + ": " + msg.err.Error() + "\n\n" + msg.text)
			return nil
		}
		m.notice("Copied", strings.ToUpper(msg.what[:1])+msg.what[1:]+" copied to clipboard:\n\n"+msg.text)
		return nil
	}

	// Cursor blink and similar input housekeeping.
	switch {
	case m.Modal != nil && m.Modal.Kind == modalForm:
		return m.Modal.Form.Update(msg)
	case m.State == StateAuth:
		return m.AuthForm.Update(msg)
	case m.Search.Focused:
		var cmd tea.Cmd
		m.Search.Input, cmd = m.Search.Input.Update(msg)
		return cmd
	}
	return nil
}

// syncBody re-renders the scrollable section and keeps the cursor row on
// screen after a cursor move.
func (m *AppModel) syncBody() {
	if m.State != StateApp {
		return
	}
	content := m.renderBody()
	m.body.SetContent(content)
	if !m.follow {
		return
	}
	m.follow = false

	for i, line := range strings.Split(content, "\n") {
		if !strings.Contains(line, cursorMarker) {
			continue
		}
		if i < m.body.YOffset {
			m.body.SetYOffset(i)
		} else if i >= m.body.YOffset+m.body.Height {
			m.body.SetYOffset(i - m.body.Height + 1)
		}
		return
	}
}
