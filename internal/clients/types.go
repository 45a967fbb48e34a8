package clients

import (
	"context"
	"encoding/json"
	"net/http"

	"shdrug/client/internal/session"
)

// Envelope is the backend's {success, msg, data} wrapper.
type Envelope[T any] struct {
	Success *bool  `json:"success,omitempty"`
	Msg     string `json:"msg,omitempty"`
	Data    T      `json:"data"`
}

type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         session.User `json:"user"`
	Msg          string       `json:"msg,omitempty"`
}

type MeResponse struct {
	User session.User `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Reminder is one slot of today's snapshot. The same ID appears once per
// remind time.
type Reminder struct {
	ID         int64  `json:"id"`
	DrugName   string `json:"drug_name"`
	Dosage     string `json:"dosage"`
	RemindTime string `json:"remind_time"`
	Notes      string `json:"notes,omitempty"`
}

type TodayReminders struct {
	Success bool       `json:"success"`
	Date    string     `json:"date"`
	Items   []Reminder `json:"items"`
	Total   int        `json:"total"`
}

func (c *Client) getRaw(ctx context.Context, path string, params Params) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.JSON(ctx, Request{Path: path, Params: params}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) sendRaw(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.JSON(ctx, Request{Method: method, Path: path, Body: body}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) postRaw(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.sendRaw(ctx, http.MethodPost, path, body)
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
