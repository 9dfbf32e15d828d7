package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{BaseURL: srv.URL + "/api/v1/"})
}

func TestBearerHeader(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"email":"a@b.c"}`))
	})

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if got != "Bearer " {
		t.Errorf("expected empty bearer before login, got %q", got)
	}

	c.SetToken("tok123")
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if got != "Bearer tok123" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"Symbol not found"}`, "Symbol not found"},
		{"no detail", http.StatusInternalServerError, `{"message":"boom"}`, "Error"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Error"},
		{"empty body", http.StatusNotFound, ``, "Error"},
		{"null detail", http.StatusBadRequest, `{"detail":null}`, "Error"},
		{"list detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.MarketOverview(context.Background(), "US")
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Errorf("expected *APIError with status %d, got %#v", tt.status, err)
			}
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	})
	_, err := c.Portfolio(context.Background(), "US")
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if IsUnauthorized(errors.New("other")) {
		t.Error("plain error reported as unauthorized")
	}
}

func TestSingleAttempt(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := c.Watchlist(context.Background(), "US"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 request, got %d", calls)
	}
}

func TestLoginIsFormEncoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("username") != "jo@example.com" || r.PostForm.Get("password") != "p&ss=1" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Write([]byte(`{"access_token":"abc","token_type":"bearer"}`))
	})

	tok, err := c.Login(context.Background(), "jo@example.com", "p&ss=1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if tok.AccessToken != "abc" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
}

func TestRegisterAndGuestSendJSON(t *testing.T) {
	bodies := map[string]map[string]any{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s Content-Type = %q", r.URL.Path, ct)
		}
		var m map[string]any
		json.NewDecoder(r.Body).Decode(&m)
		bodies[r.URL.Path] = m
		w.Write([]byte(`{"access_token":"t"}`))
	})

	ctx := context.Background()
	if _, err := c.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "pw", FirstName: "A", LastName: "B"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Guest(ctx, DeviceInfo{UserAgent: "ua", ScreenWidth: 120, City: "Pune"}); err != nil {
		t.Fatal(err)
	}

	reg := bodies["/api/v1/auth/register"]
	if reg["first_name"] != "A" || reg["email"] != "a@b.c" {
		t.Errorf("register body = %v", reg)
	}
	guest := bodies["/api/v1/auth/guest"]
	if guest["user_agent"] != "ua" || guest["city"] != "Pune" || guest["screen_width"] != float64(120) {
		t.Errorf("guest body = %v", guest)
	}
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.EscapedPath()
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	if err := c.SetUserActive(ctx, "a b/c@x.com", false); err != nil {
		t.Fatal(err)
	}
	if raw != "/api/v1/admin/users/a%20b%2Fc@x.com" {
		t.Errorf("path = %s", raw)
	}

	if err := c.RemoveHolding(ctx, "NSE", "M&M"); err != nil {
		t.Fatal(err)
	}
	if raw != "/api/v1/portfolio/M&M" {
		t.Errorf("path = %s", raw)
	}
}

func TestExchangeScopedCalls(t *testing.T) {
	type call struct{ method, path, exchange string }
	var got []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, call{r.Method, r.URL.Path, r.URL.Query().Get("exchange")})
		if r.URL.Path == "/api/v1/recommendations" {
			w.Write([]byte(`[{"symbol":"TCS","confidence_score":0.82}]`))
			return
		}
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	c.MarketOverview(ctx, "LSE")
	c.Portfolio(ctx, "LSE")
	c.AddHolding(ctx, "LSE", "VOD", 10, 72.5)
	c.Watchlist(ctx, "LSE")
	c.AddToWatchlist(ctx, "LSE", "VOD")
	c.RemoveFromWatchlist(ctx, "LSE", "VOD")
	c.Alerts(ctx, "LSE")
	recs, err := c.Recommendations(ctx, "LSE")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Symbol != "TCS" {
		t.Errorf("recommendations = %+v", recs)
	}

	want := []call{
		{"GET", "/api/v1/stocks/market-overview", "LSE"},
		{"GET", "/api/v1/portfolio", "LSE"},
		{"POST", "/api/v1/portfolio/add", "LSE"},
		{"GET", "/api/v1/watchlist", "LSE"},
		{"POST", "/api/v1/watchlist/add", "LSE"},
		{"DELETE", "/api/v1/watchlist/VOD", "LSE"},
		{"GET", "/api/v1/alerts", "LSE"},
		{"GET", "/api/v1/recommendations", "LSE"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d calls, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFeedbackStatusFilter(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`{"feedback":[]}`))
	})
	ctx := context.Background()

	c.Feedback(ctx, "")
	if query != "" {
		t.Errorf("unfiltered query = %q", query)
	}
	c.Feedback(ctx, FeedbackInProgress)
	if query != "status=in_progress" {
		t.Errorf("filtered query = %q", query)
	}
}

func TestResetPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/admin/users/u@x.com/reset-password" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"temporary_password":"Tmp-9981"}`))
	})
	pw, err := c.ResetPassword(context.Background(), "u@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if pw != "Tmp-9981" {
		t.Errorf("temporary password = %q", pw)
	}
}

func TestCreateAlertNullRationale(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{}`))
	})
	err := c.CreateAlert(context.Background(), CreateAlertRequest{
		Symbol: "AAPL", EntryPrice: 100, StopLoss: 90, TargetPrice: 120, Exchange: "US",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := body["rationale"]; !ok || v != nil {
		t.Errorf("rationale should be explicit null, got %v (present=%v)", v, ok)
	}
	if body["stop_loss"] != float64(90) {
		t.Errorf("stop_loss = %v", body["stop_loss"])
	}
}

func TestOAuthURL(t *testing.T) {
	c := NewClient(ClientOptions{BaseURL: "http://localhost:8000/api/v1"})
	got := c.OAuthURL("google", "http://127.0.0.1:5555/callback")
	want := "http://localhost:8000/api/v1/auth/oauth/google?redirect_uri=http%3A%2F%2F127.0.0.1%3A5555%2Fcallback"
	if got != want {
		t.Errorf("OAuthURL = %s", got)
	}
}

func TestIDsDecodeFromStringsAndNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/alerts":
			w.Write([]byte(`{"alerts":[{"id":42,"symbol":"TCS"},{"id":"a-7","symbol":"INFY"},{"id":null}]}`))
		case "/api/v1/feedback":
			w.Write([]byte(`{"feedback":[{"id":1234567890123,"status":"new"}]}`))
		case "/api/v1/admin/guest-sessions":
			w.Write([]byte(`{"sessions":[{"guest_id":9},{"guest_id":"g-1"}]}`))
		}
	})
	ctx := context.Background()

	alerts, err := c.Alerts(ctx, "NSE")
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	var ids []ID
	for _, a := range alerts.Alerts {
		ids = append(ids, a.ID)
	}
	if len(ids) != 3 || ids[0] != "42" || ids[1] != "a-7" || ids[2] != "" {
		t.Errorf("alert ids = %q", ids)
	}

	fb, err := c.Feedback(ctx, "")
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if fb.Feedback[0].ID != "1234567890123" {
		t.Errorf("feedback id = %q", fb.Feedback[0].ID)
	}

	guests, err := c.GuestSessions(ctx)
	if err != nil {
		t.Fatalf("GuestSessions: %v", err)
	}
	if guests.Sessions[0].GuestID != "9" || guests.Sessions[1].GuestID != "g-1" {
		t.Errorf("guest ids = %q, %q", guests.Sessions[0].GuestID, guests.Sessions[1].GuestID)
	}
}

func TestIDRejectsObjects(t *testing.T) {
	var a Alert
	if err := json.Unmarshal([]byte(`{"id":{"x":1}}`), &a); err == nil {
		t.Error("object id decoded without error")
	}
}
