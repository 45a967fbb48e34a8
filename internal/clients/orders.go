package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// OrdersAPI covers the pharmacy/supplier order workflow. The state machine
// lives in the backend; these calls only request transitions.
type OrdersAPI struct {
	c *Client
}

type OrderFilter struct {
	Status  string
	Role    string
	Keyword string
	Page    int
	PerPage int
}

func (a *OrdersAPI) Create(ctx context.Context, payload any) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/orders", payload)
}

func (a *OrdersAPI) List(ctx context.Context, f OrderFilter) (*Envelope[Page[json.RawMessage]], error) {
	var out Envelope[Page[json.RawMessage]]
	err := a.c.JSON(ctx, Request{Path: "/api/orders", Params: Params{
		"status":   f.Status,
		"role":     f.Role,
		"keyword":  f.Keyword,
		"page":     orDefault(f.Page, 1),
		"per_page": orDefault(f.PerPage, 10),
	}}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *OrdersAPI) Get(ctx context.Context, orderID int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("/api/orders/%d", orderID), nil)
}

func (a *OrdersAPI) Confirm(ctx context.Context, orderID int64, payload any) (json.RawMessage, error) {
	return a.transition(ctx, orderID, "confirm", payload)
}

func (a *OrdersAPI) Cancel(ctx context.Context, orderID int64, payload any) (json.RawMessage, error) {
	return a.transition(ctx, orderID, "cancel", payload)
}

func (a *OrdersAPI) Ship(ctx context.Context, orderID int64, payload any) (json.RawMessage, error) {
	return a.transition(ctx, orderID, "ship", payload)
}

func (a *OrdersAPI) Receive(ctx context.Context, orderID int64, payload any) (json.RawMessage, error) {
	return a.transition(ctx, orderID, "receive", payload)
}

func (a *OrdersAPI) Stats(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/orders/stats", nil)
}

func (a *OrdersAPI) UpdateStatus(ctx context.Context, orderID int64, status string) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodPatch, fmt.Sprintf("/api/orders/status/%d", orderID), map[string]string{"status": status})
}

func (a *OrdersAPI) transition(ctx context.Context, orderID int64, action string, payload any) (json.RawMessage, error) {
	if payload == nil {
		payload = struct{}{}
	}
	return a.c.postRaw(ctx, fmt.Sprintf("/api/orders/%d/%s", orderID, action), payload)
}
