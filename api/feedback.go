package api

import (
	"context"
	"net/http"
	"net/url"
)

// Feedback statuses in the order an item moves through them.
const (
	FeedbackNew        = "new"
	FeedbackInProgress = "in_progress"
	FeedbackResolved   = "resolved"
	FeedbackClosed     = "closed"
)

// Feedback lists submitted feedback. An empty status lists everything.
func (c *Client) Feedback(ctx context.Context, status string) (*FeedbackList, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	var out FeedbackList
	if err := c.get(ctx, "/feedback", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, kind, message, page string) error {
	body := map[string]string{
		"type":    kind,
		"message": message,
		"page":    page,
	}
	return c.sendJSON(ctx, http.MethodPost, "/feedback", nil, body, nil)
}

func (c *Client) UpdateFeedbackStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return c.sendJSON(ctx, http.MethodPut, "/feedback/"+segment(id), nil, body, nil)
}

func (c *Client) DeleteFeedback(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/feedback/"+segment(id), nil, nil, "", nil)
}
