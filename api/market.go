package api

import (
	"context"
	"net/url"
)

func (c *Client) MarketOverview(ctx context.Context, exchange string) (*MarketOverview, error) {
	var out MarketOverview
	if err := c.get(ctx, "/stocks/market-overview", exchangeQuery(exchange), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchStocks looks up symbols and names matching query on the exchange.
func (c *Client) SearchStocks(ctx context.Context, query, exchange string) (*SearchResults, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("exchange", exchange)

	var out SearchResults
	if err := c.get(ctx, "/stocks/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quote returns the live quote for symbol, including the AI analysis block.
func (c *Client) Quote(ctx context.Context, symbol, exchange string) (*Stock, error) {
	var out Stock
	if err := c.get(ctx, "/stocks/quote/"+segment(symbol), exchangeQuery(exchange), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommendations returns the AI picks for the exchange. The backend answers
// with a bare array.
func (c *Client) Recommendations(ctx context.Context, exchange string) ([]Recommendation, error) {
	var out []Recommendation
	if err := c.get(ctx, "/recommendations", exchangeQuery(exchange), &out); err != nil {
		return nil, err
	}
	return out, nil
}
