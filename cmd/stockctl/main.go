package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"stockadvisor/api"
	"stockadvisor/auth"
	"stockadvisor/config"
	"stockadvisor/models"
	"stockadvisor/ui"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		login      = flag.Bool("login", false, "Sign in and store the session token")
		logout     = flag.Bool("logout", false, "Forget the stored session token")
		whoami     = flag.Bool("whoami", false, "Show the signed-in user")
		snapshot   = flag.Bool("snapshot", false, "Print market, portfolio, watchlist and AI picks")
		exchange   = flag.String("exchange", "", "Exchange to use: US, NSE, LSE, TSE, HKEX (saved for next time)")
		timeout    = flag.Duration("timeout", 30*time.Second, "Overall request timeout")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || flag.NFlag() == 0 {
		fmt.Println("StockAdvisor command line client")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  stockctl -login")
		fmt.Println("  stockctl -whoami")
		fmt.Println("  stockctl -snapshot -exchange=NSE")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Print(config.EnvHelp)
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	ui.SetLanguage(os.Getenv("LANG"))

	client := api.NewClient(api.ClientOptions{BaseURL: cfg.APIBaseURL, RequestsPerSec: cfg.RequestsPerSec})
	store := auth.NewStore(cfg.StateDir)
	session := auth.NewSession(client, store, cfg.DefaultExchange)

	if *exchange != "" {
		session.SetExchange(config.ParseExchange(*exchange))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch {
	case *logout:
		session.End()
		fmt.Println("✅ Signed out")
	case *login:
		err = runLogin(ctx, client, session)
	case *whoami:
		err = runWhoami(ctx, client, session, cfg)
	case *snapshot:
		err = runSnapshot(ctx, client, session)
	}
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

func runLogin(ctx context.Context, client *api.Client, session *auth.Session) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	tok, err := client.Login(ctx, email, string(passwordBytes))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	session.Begin(tok.AccessToken)

	user, err := client.Me(ctx)
	if err != nil {
		session.End()
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("✅ Signed in as %s\n", user.Email)
	return nil
}

func runWhoami(ctx context.Context, client *api.Client, session *auth.Session, cfg *config.Config) error {
	if !session.HasToken() {
		return fmt.Errorf("not signed in, run stockctl -login first")
	}
	user, err := client.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			session.End()
		}
		return err
	}
	session.SetUser(user)

	fmt.Printf("%s %s <%s>\n", session.Initials(), strings.TrimSpace(user.FirstName+" "+user.LastName), user.Email)
	fmt.Printf("Exchange: %s (%s)\n", session.Exchange(), session.Exchange().Currency().Code)
	if session.IsAdmin(cfg.AdminEmail) {
		fmt.Println("Role: admin")
	}
	return nil
}

// runSnapshot loads the four main sections concurrently and prints them with
// the same renderers the TUI uses.
func runSnapshot(ctx context.Context, client *api.Client, session *auth.Session) error {
	ex := session.Exchange()
	cur := ex.Currency().Symbol

	var (
		market    *api.MarketOverview
		portfolio *api.Portfolio
		watchlist *api.Watchlist
		picks     []api.Recommendation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		market, err = client.MarketOverview(gctx, ex.String())
		return err
	})
	g.Go(func() (err error) {
		portfolio, err = client.Portfolio(gctx, ex.String())
		return err
	})
	g.Go(func() (err error) {
		watchlist, err = client.Watchlist(gctx, ex.String())
		return err
	})
	g.Go(func() (err error) {
		picks, err = client.Recommendations(gctx, ex.String())
		return err
	})
	if err := g.Wait(); err != nil {
		if api.IsUnauthorized(err) {
			session.End()
		}
		return err
	}

	sections := []struct {
		title string
		body  string
	}{
		{"📊 MARKET OVERVIEW · " + ex.String(), models.RenderMarket(market, cur, -1)},
		{"💼 PORTFOLIO", models.RenderPortfolio(portfolio, cur, -1)},
		{"👀 WATCHLIST", models.RenderWatchlist(watchlist, cur, -1)},
		{"🤖 AI PICKS", models.RenderAIPicks(picks, cur, -1)},
	}
	for _, s := range sections {
		fmt.Println(ui.HeaderStyle.Render(s.title))
		fmt.Println(s.body)
		fmt.Println()
	}
	return nil
}
