package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stockadvisor/api"
	"stockadvisor/auth"
	"stockadvisor/config"
)

const adminEmail = "admin@example.com"

// fakeBackend answers every request with a canned body and records the calls
// in arrival order.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
	lastAuth string
}

func (b *fakeBackend) handle(route string, status int, body string) {
	b.route(route, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func (b *fakeBackend) route(route string, h func(w http.ResponseWriter, r *http.Request)) {
	b.mu.Lock()
	b.routes[route] = h
	b.mu.Unlock()
}

// capture answers route with body and stores the decoded JSON request in out.
func (b *fakeBackend) capture(route, body string, out any) {
	b.route(route, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		json.NewDecoder(r.Body).Decode(out)
		b.mu.Unlock()
		w.Write([]byte(body))
	})
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1")

	b.mu.Lock()
	b.calls = append(b.calls, route)
	b.lastAuth = r.Header.Get("Authorization")
	h := b.routes[route]
	b.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}
	if route == "GET /recommendations" {
		w.Write([]byte(`[]`))
		return
	}
	w.Write([]byte(`{}`))
}

func (b *fakeBackend) called() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) count(route string) int {
	n := 0
	for _, c := range b.called() {
		if c == route {
			n++
		}
	}
	return n
}

func (b *fakeBackend) index(route string) int {
	for i, c := range b.called() {
		if c == route {
			return i
		}
	}
	return -1
}

type harness struct {
	backend *fakeBackend
	store   *auth.Store
	client  *api.Client
	model   *AppModel
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()

	b := &fakeBackend{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL + "/api/v1"
	cfg.AdminEmail = adminEmail
	cfg.RefreshInterval = 0
	cfg.SearchDebounce = time.Millisecond

	store := auth.NewStore(t.TempDir())
	if token != "" {
		if err := store.SaveToken(token); err != nil {
			t.Fatalf("SaveToken: %v", err)
		}
	}
	client := api.NewClient(api.ClientOptions{BaseURL: cfg.APIBaseURL})
	session := auth.NewSession(client, store, cfg.DefaultExchange)

	m := NewAppModel(Options{
		Config:    cfg,
		Client:    client,
		Session:   session,
		Store:     store,
		Clipboard: func(string) error { return nil },
		Context:   context.Background(),
	})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	return &harness{backend: b, store: store, client: client, model: m}
}

// run executes cmd and everything it leads to, feeding each message back into
// the model. Commands that do not finish promptly (cursor blink, timers) are
// abandoned.
func (h *harness) run(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 200; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		done := make(chan tea.Msg, 1)
		go func() { done <- c() }()

		var msg tea.Msg
		select {
		case msg = <-done:
		case <-time.After(300 * time.Millisecond):
			continue
		}

		switch msg := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := h.model.Update(msg)
			queue = append(queue, next)
		}
	}
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "ctrl+l":
			msg = tea.KeyMsg{Type: tea.KeyCtrlL}
		case "ctrl+g":
			msg = tea.KeyMsg{Type: tea.KeyCtrlG}
		case "ctrl+r":
			msg = tea.KeyMsg{Type: tea.KeyCtrlR}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := h.model.Update(msg)
		h.run(cmd)
	}
}

// signIn restores a session for email through the normal startup path.
func (h *harness) signIn(t *testing.T, email string) {
	t.Helper()
	h.backend.handle("GET /auth/me", http.StatusOK, `{"email":"`+email+`","first_name":"Ada","last_name":"Lovelace"}`)
	h.run(h.model.Init())
	if h.model.State != StateApp {
		t.Fatalf("state = %v, want signed in", h.model.State)
	}
}

func TestRestoredSessionLoadsAllData(t *testing.T) {
	h := newHarness(t, "tok")
	h.backend.handle("GET /stocks/market-overview", http.StatusOK, `{"stocks":[{"symbol":"AAPL","change_percent":1}]}`)
	h.signIn(t, "user@example.com")

	for _, route := range []string{"GET /stocks/market-overview", "GET /portfolio", "GET /watchlist", "GET /recommendations"} {
		if h.backend.count(route) != 1 {
			t.Errorf("%s called %d times, want 1", route, h.backend.count(route))
		}
	}
	if h.model.Market == nil || len(h.model.Market.Stocks) != 1 {
		t.Errorf("market not loaded: %+v", h.model.Market)
	}
	if h.backend.lastAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", h.backend.lastAuth)
	}
}

func TestRestoredSessionRejected(t *testing.T) {
	h := newHarness(t, "expired")
	h.backend.handle("GET /auth/me", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)

	h.run(h.model.Init())

	if h.model.State != StateAuth {
		t.Errorf("state = %v, want sign-in screen", h.model.State)
	}
	st, _ := h.store.Load()
	if st.Token != "" || h.client.Token() != "" {
		t.Error("rejected token was kept")
	}
}

func TestLoginFormSignsIn(t *testing.T) {
	h := newHarness(t, "")
	h.backend.handle("POST /auth/login", http.StatusOK, `{"access_token":"fresh","token_type":"bearer"}`)
	h.backend.handle("GET /auth/me", http.StatusOK, `{"email":"user@example.com"}`)
	h.run(h.model.Init())

	h.model.AuthForm.Set(loginEmail, "user@example.com").Set(loginPassword, "secret")
	h.model.AuthForm.focus(loginPassword)
	h.press("enter")

	if h.model.State != StateApp {
		t.Fatalf("state = %v, want signed in (error %q)", h.model.State, h.model.AuthError)
	}
	if st, _ := h.store.Load(); st.Token != "fresh" {
		t.Errorf("stored token = %q", st.Token)
	}
}

func TestLoginFailureShowsDetail(t *testing.T) {
	h := newHarness(t, "")
	h.backend.handle("POST /auth/login", http.StatusUnauthorized, `{"detail":"Incorrect email or password"}`)

	h.model.AuthForm.Set(loginEmail, "user@example.com").Set(loginPassword, "wrong")
	h.model.AuthForm.focus(loginPassword)
	h.press("enter")

	if h.model.State != StateAuth {
		t.Fatalf("state = %v", h.model.State)
	}
	if h.model.AuthError != "Incorrect email or password" {
		t.Errorf("AuthError = %q", h.model.AuthError)
	}
}

func TestLogoutClearsToken(t *testing.T) {
	h := newHarness(t, "tok")
	h.signIn(t, "user@example.com")

	h.press("ctrl+l")

	if h.model.State != StateAuth {
		t.Errorf("state = %v, want sign-in screen", h.model.State)
	}
	if h.client.Token() != "" {
		t.Error("client still holds the token")
	}
	if st, _ := h.store.Load(); st.Token != "" {
		t.Error("token still persisted")
	}
	if h.model.AuthNotice != "You have been signed out." {
		t.Errorf("notice = %q", h.model.AuthNotice)
	}

	// Protected calls are still attempted; the backend decides.
	if _, err := h.client.Portfolio(context.Background(), "US"); err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if strings.Contains(h.backend.lastAuth, "tok") {
		t.Errorf("Authorization after logout = %q", h.backend.lastAuth)
	}
}

func TestUnauthorizedResponseEndsSession(t *testing.T) {
	h := newHarness(t, "tok")
	h.signIn(t, "user@example.com")
	h.backend.handle("GET /alerts", http.StatusUnauthorized, `{"detail":"Token expired"}`)

	h.press("4")

	if h.model.State != StateAuth {
		t.Errorf("state = %v, want sign-in screen", h.model.State)
	}
	if h.client.Token() != "" {
		t.Error("token kept after 401")
	}
}

func TestStaleResultsAreDropped(t *testing.T) {
	h := newHarness(t, "tok")
	h.signIn(t, "user@example.com")
	h.model.Market = nil

	pending := h.model.fetch(resMarket, false)
	h.press("ctrl+l")
	h.run(pending)

	if h.model.Market != nil {
		t.Error("result from the previous session was applied")
	}
}

func TestInlineAndLoggedFailures(t *testing.T) {
	h := newHarness(t, "tok")
	h.backend.handle("GET /stocks/market-overview", http.StatusServiceUnavailable, `{"detail":"Market data unavailable"}`)
	h.backend.handle("GET /portfolio", http.StatusInternalServerError, `oops`)
	h.signIn(t, "user@example.com")

	if h.model.MarketErr != "Market data unavailable" {
		t.Errorf("MarketErr = %q", h.model.MarketErr)
	}
	if !strings.Contains(h.model.renderBody(), "Error: Market data unavailable") {
		t.Error("market error not shown inline")
	}
	if h.model.Portfolio != nil {
		t.Error("failed portfolio fetch replaced the view")
	}
}

func TestAlertValidationSendsNothing(t *testing.T) {
	h := newHarness(t, "tok")
	h.signIn(t, "user@example.com")
	h.press("4", "n")

	f := h.model.Modal.Form
	f.Set(alSymbol, "aapl").Set(alEntry, "100").Set(alStop, "100").Set(alTarget, "120")
	f.focus(alRationale)
	h.press("enter")

	if h.model.Modal == nil || h.model.Modal.Form == nil {
		t.Fatal("form closed on invalid input")
	}
	if f.Error != "Stop loss must be below entry price" {
		t.Errorf("form error = %q", f.Error)
	}
	if n := h.backend.count("POST /alerts"); n != 0 {
		t.Errorf("POST /alerts sent %d times", n)
	}

	f.Set(alStop, "90")
	h.press("enter")

	if n := h.backend.count("POST /alerts"); n != 1 {
		t.Fatalf("POST /alerts sent %d times, want 1", n)
	}
	if h.model.Modal == nil || h.model.Modal.Body != "Stock alert created successfully!" {
		t.Errorf("modal = %+v", h.model.Modal)
	}
}

func TestMutationRefreshesAfterCompletion(t *testing.T) {
	h := newHarness(t, "tok")
	h.backend.handle("GET /watchlist", http.StatusOK, `{"stocks":[{"symbol":"TSLA"}]}`)
	h.signIn(t, "user@example.com")
	h.press("3")
	before := h.backend.count("GET /watchlist")

	h.press("x")

	del := h.backend.index("DELETE /watchlist/TSLA")
	if del < 0 {
		t.Fatalf("no delete sent: %v", h.backend.called())
	}
	if h.backend.count("GET /watchlist") != before+1 {
		t.Fatalf("watchlist not refetched: %v", h.backend.called())
	}
	calls := h.backend.called()
	last := -1
	for i, c := range calls {
		if c == "GET /watchlist" {
			last = i
		}
	}
	if last < del {
		t.Errorf("refresh issued before the delete finished: %v", calls)
	}
}

func TestDestructiveActionsConfirm(t *testing.T) {
	h := newHarness(t, "tok")
	h.backend.handle("GET /portfolio", http.StatusOK, `{"holdings":[{"symbol":"INFY","quantity":2}]}`)
	h.signIn(t, "user@example.com")
	h.press("2", "x")

	if h.model.Modal == nil || h.model.Modal.Body != "Remove INFY from portfolio?" {
		t.Fatalf("modal = %+v", h.model.Modal)
	}
	h.press("n")
	if h.backend.count("DELETE /portfolio/INFY") != 0 {
		t.Fatal("cancelled removal was sent")
	}

	h.press("x", "y")
	if h.backend.count("DELETE /portfolio/INFY") != 1 {
		t.Errorf("confirmed removal not sent: %v", h.backend.called())
	}
}

func TestActionFailureShowsMessage(t *testing.T) {
	h := newHarness(t, "tok")
	h.backend.handle("GET /stocks/market-overview", http.StatusOK, `{"stocks":[{"symbol":"AAPL","current_price":190}]}`)
	h.backend.handle("POST /watchlist/add", http.StatusBadRequest, `{"detail":"Already in watchlist"}`)
	h.signIn(t, "user@example.com")

	h.press("w")

	if h.model.Modal == nil || !h.model.Modal.Error {
		t.Fatalf("modal = %+v", h.model.Modal)
	}
	if h.model.Modal.Body != "Failed to add to watchlist: Already in watchlist" {
		t.Errorf("body = %q", h.model.Modal.Body)
	}
}

func TestAdminTabsGatedByEmail(t *testing.T) {
	tests := []struct {
		email string
		want  int
	}{
		{"user@example.com", 5},
		{"ADMIN@example.com", 5},
		{adminEmail, 8},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			h := newHarness(t, "tok")
			h.signIn(t, tt.email)
			if got := len(h.model.visibleTabs()); got != tt.want {
				t.Errorf("visible tabs = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAdminTabLoadsStatsUsersAndGuests(t *testing.T) {
	h := newHarness(t, "tok")
	h.signIn(t, adminEmail)
	h.press("7")

	for _, route := range []string{"GET /admin/stats", "GET /admin/users", "GET /admin/guest-sessions"} {
		if h.backend.count(route) != 1 {
			t.Errorf("%s called %d times", route, h.backend.count(route))
		}
	}
}

func TestExchangeChangePersistsAndReloads(t *testing.T) {
	h := newHarness(t, "tok")
	h.signIn(t, "user@example.com")
	before := h.backend.count("GET /stocks/market-overview")

	h.press("c")

	if got := h.model.Session.Exchange(); got != config.ExchangeNSE {
		t.Errorf("exchange = %s, want NSE", got)
	}
	if st, _ := h.store.Load(); st.Exchange != "NSE" {
		t.Errorf("persisted exchange = %q", st.Exchange)
	}
	if h.backend.count("GET /stocks/market-overview") != before+1 {
		t.Error("market not reloaded")
	}
}

func TestPortfolioQuantityReadsLeadingInteger(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"NaN", 1},
		{"1e30", 1},
		{"-Inf", 1},
		{"abc", 1},
		{"12.7", 12},
		{"3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h := newHarness(t, "tok")
			h.backend.handle("GET /stocks/market-overview", http.StatusOK, `{"stocks":[{"symbol":"AAPL","current_price":100}]}`)
			body := map[string]any{}
			h.backend.capture("POST /portfolio/add", `{}`, &body)
			h.signIn(t, "user@example.com")

			h.press("p")
			if h.model.Modal == nil || h.model.Modal.Form == nil {
				t.Fatal("portfolio form not open")
			}
			f := h.model.Modal.Form
			f.Set(pfQuantity, tt.in)
			f.focus(pfPrice)
			h.press("enter")

			if h.backend.count("POST /portfolio/add") != 1 {
				t.Fatalf("calls = %v", h.backend.called())
			}
			h.backend.mu.Lock()
			defer h.backend.mu.Unlock()
			if body["quantity"] != tt.want {
				t.Errorf("quantity = %v, want %v", body["quantity"], tt.want)
			}
			if body["avg_cost"] != float64(100) {
				t.Errorf("avg_cost = %v", body["avg_cost"])
			}
		})
	}
}

func TestGuestLoginSurvivesFailedLocation(t *testing.T) {
	t.Setenv("TZ", "Asia/Kolkata")
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(geo.Close)

	h := newHarness(t, "")
	loc := auth.NewLocator(200 * time.Millisecond)
	loc.Providers = []auth.GeoProvider{
		{Name: "first", URL: geo.URL + "/one", Parse: auth.DefaultProviders[0].Parse},
		{Name: "second", URL: geo.URL + "/two", Parse: auth.DefaultProviders[1].Parse},
	}
	h.model.Locator = loc

	var device api.DeviceInfo
	h.backend.capture("POST /auth/guest", `{"access_token":"guest-tok"}`, &device)
	h.backend.handle("GET /auth/me", http.StatusOK, `{"email":"guest_1@guest.local"}`)

	h.press("ctrl+g")

	if h.model.State != StateApp {
		t.Fatalf("state = %v, want signed in (error %q)", h.model.State, h.model.AuthError)
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	if device.Country != "India" || device.City != "Kolkata" {
		t.Errorf("location = %s / %s, want India / Kolkata", device.Country, device.City)
	}
	if device.Timezone != "Asia/Kolkata" || device.DeviceID == "" {
		t.Errorf("device = %+v", device)
	}
	if st, _ := h.store.Load(); st.Token != "guest-tok" {
		t.Errorf("stored token = %q", st.Token)
	}
}

func TestRegisterSignsIn(t *testing.T) {
	h := newHarness(t, "")
	var req api.RegisterRequest
	h.backend.capture("POST /auth/register", `{"access_token":"new-user"}`, &req)
	h.backend.handle("GET /auth/me", http.StatusOK, `{"email":"ada@example.com","first_name":"Ada"}`)

	h.press("ctrl+r")
	if !h.model.Registering {
		t.Fatal("register form not shown")
	}
	f := h.model.AuthForm
	f.Set(regFirstName, "Ada").Set(regLastName, "Lovelace").Set(regEmail, "ada@example.com").Set(regPassword, " pw ")
	f.focus(regPassword)
	h.press("enter")

	if h.model.State != StateApp {
		t.Fatalf("state = %v, want signed in (error %q)", h.model.State, h.model.AuthError)
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	if req.FirstName != "Ada" || req.LastName != "Lovelace" || req.Email != "ada@example.com" {
		t.Errorf("register request = %+v", req)
	}
	if req.Password != " pw " {
		t.Errorf("password was altered: %q", req.Password)
	}
}

func TestRegisterRequiresAllFields(t *testing.T) {
	h := newHarness(t, "")
	h.press("ctrl+r")
	h.model.AuthForm.Set(regFirstName, "Ada")
	h.model.AuthForm.focus(regPassword)
	h.press("enter")

	if h.model.AuthError != "Please fill in all fields" {
		t.Errorf("AuthError = %q", h.model.AuthError)
	}
	if h.backend.count("POST /auth/register") != 0 {
		t.Error("incomplete registration was sent")
	}
}

func newSSOFlow(t *testing.T, h *harness) *auth.SSOFlow {
	t.Helper()
	sso := &auth.SSO{Client: h.client, Addr: "127.0.0.1:0", Timeout: time.Minute}
	flow, err := sso.Start("google")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(flow.Close)
	return flow
}

func TestSSOCancelReturnsToSignIn(t *testing.T) {
	h := newHarness(t, "")
	flow := newSSOFlow(t, h)

	_, wait := h.model.Update(ssoStartedMsg{flow: flow})
	if h.model.Modal == nil || h.model.Modal.Kind != modalSSO {
		t.Fatalf("modal = %+v", h.model.Modal)
	}

	h.press("esc")
	h.run(wait)

	if h.model.State != StateAuth {
		t.Errorf("state = %v, want sign-in screen", h.model.State)
	}
	if h.model.AuthError != auth.ErrSSOCancelled.Error() {
		t.Errorf("AuthError = %q", h.model.AuthError)
	}
	if h.model.Modal != nil {
		t.Error("sign-in modal still open")
	}
}

func TestSSOCallbackSignsIn(t *testing.T) {
	h := newHarness(t, "")
	h.backend.handle("GET /auth/me", http.StatusOK, `{"email":"sso@example.com"}`)
	flow := newSSOFlow(t, h)

	_, wait := h.model.Update(ssoStartedMsg{flow: flow})

	u, err := url.Parse(flow.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get(u.Query().Get("redirect_uri") + "?token=sso-tok")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	resp.Body.Close()

	h.run(wait)

	if h.model.State != StateApp {
		t.Fatalf("state = %v, want signed in (error %q)", h.model.State, h.model.AuthError)
	}
	if h.client.Token() != "sso-tok" {
		t.Errorf("token = %q", h.client.Token())
	}
}

func TestResultsForPreviousExchangeAreDropped(t *testing.T) {
	h := newHarness(t, "tok")
	h.backend.route("GET /stocks/market-overview", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("exchange") == "NSE" {
			w.Write([]byte(`{"stocks":[{"symbol":"RELIANCE"}]}`))
			return
		}
		w.Write([]byte(`{"stocks":[{"symbol":"AAPL"}]}`))
	})
	h.signIn(t, "user@example.com")

	pending := h.model.fetch(resMarket, false)
	h.press("c")
	h.run(pending)

	if h.model.Market == nil || h.model.Market.Stocks[0].Symbol != "RELIANCE" {
		t.Errorf("market = %+v, want the NSE result", h.model.Market)
	}
}

func TestDroppedBackgroundResultKeepsRefreshing(t *testing.T) {
	h := newHarness(t, "tok")
	h.model.refresh = NewAutoRefresh(time.Minute, time.Hour)
	h.signIn(t, "user@example.com")
	h.press("c")

	_, cmd := h.model.Update(marketLoadedMsg{
		epoch:      h.model.Session.Epoch(),
		exchange:   "US",
		data:       &api.MarketOverview{Stocks: []api.Stock{{Symbol: "AAPL"}}},
		background: true,
	})
	if cmd == nil {
		t.Error("refresh chain stopped")
	}
	if h.model.Market != nil && len(h.model.Market.Stocks) > 0 && h.model.Market.Stocks[0].Symbol == "AAPL" {
		t.Error("US result shown after switching to NSE")
	}
}

func TestFooterShowsAutoRefresh(t *testing.T) {
	h := newHarness(t, "tok")
	h.model.refresh = NewAutoRefresh(time.Minute, time.Hour)
	h.signIn(t, "user@example.com")

	if !strings.Contains(h.model.footerView(), "auto-refresh 1m0s") {
		t.Errorf("footer = %q", h.model.footerView())
	}

	h.press("ctrl+l")
	if h.model.refresh.Active() {
		t.Error("auto-refresh still running after sign-out")
	}
}
