package api

import (
	"context"
	"net/http"
)

func (c *Client) Alerts(ctx context.Context, exchange string) (*AlertList, error) {
	var out AlertList
	if err := c.get(ctx, "/alerts", exchangeQuery(exchange), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAlert stores a new price band. Validation happens before this is called.
func (c *Client) CreateAlert(ctx context.Context, req CreateAlertRequest) error {
	return c.sendJSON(ctx, http.MethodPost, "/alerts", nil, req, nil)
}

func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/alerts/"+segment(id), nil, nil, "", nil)
}
