package api

import (
	"context"
	"net/http"
)

func (c *Client) Portfolio(ctx context.Context, exchange string) (*Portfolio, error) {
	var out Portfolio
	if err := c.get(ctx, "/portfolio", exchangeQuery(exchange), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddHolding adds quantity shares of symbol at avgCost. Adding a symbol that is
// already held replaces its quantity and cost basis.
func (c *Client) AddHolding(ctx context.Context, exchange, symbol string, quantity, avgCost float64) error {
	body := map[string]any{
		"symbol":   symbol,
		"quantity": quantity,
		"avg_cost": avgCost,
	}
	return c.sendJSON(ctx, http.MethodPost, "/portfolio/add", exchangeQuery(exchange), body, nil)
}

func (c *Client) RemoveHolding(ctx context.Context, exchange, symbol string) error {
	return c.do(ctx, http.MethodDelete, "/portfolio/"+segment(symbol), exchangeQuery(exchange), nil, "", nil)
}

func (c *Client) Watchlist(ctx context.Context, exchange string) (*Watchlist, error) {
	var out Watchlist
	if err := c.get(ctx, "/watchlist", exchangeQuery(exchange), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddToWatchlist(ctx context.Context, exchange, symbol string) error {
	body := map[string]string{"symbol": symbol}
	return c.sendJSON(ctx, http.MethodPost, "/watchlist/add", exchangeQuery(exchange), body, nil)
}

func (c *Client) RemoveFromWatchlist(ctx context.Context, exchange, symbol string) error {
	return c.do(ctx, http.MethodDelete, "/watchlist/"+segment(symbol), exchangeQuery(exchange), nil, "", nil)
}
