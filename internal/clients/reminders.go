package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const remindersBase = "/api/reminders"

// RemindersAPI manages the signed-in user's medication reminders.
type RemindersAPI struct {
	c *Client
}

type ReminderFilter struct {
	IsActive *bool
	Page     int
	PerPage  int
}

// ReminderInput creates or updates a reminder. RemindTimes are HH:MM and
// dates are YYYY-MM-DD.
type ReminderInput struct {
	DrugName    string   `json:"drug_name"`
	DrugID      *int64   `json:"drug_id,omitempty"`
	Dosage      string   `json:"dosage"`
	Frequency   string   `json:"frequency"`
	RemindTimes []string `json:"remind_times"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

func (a *RemindersAPI) List(ctx context.Context, f ReminderFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, remindersBase, Params{
		"is_active": f.IsActive,
		"page":      orDefault(f.Page, 1),
		"per_page":  orDefault(f.PerPage, 10),
	})
}

func (a *RemindersAPI) Today(ctx context.Context) (*TodayReminders, error) {
	var out TodayReminders
	if err := a.c.JSON(ctx, Request{Path: remindersBase + "/today"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *RemindersAPI) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("%s/%d", remindersBase, id), nil)
}

func (a *RemindersAPI) Create(ctx context.Context, in ReminderInput) (json.RawMessage, error) {
	return a.c.postRaw(ctx, remindersBase, in)
}

func (a *RemindersAPI) Update(ctx context.Context, id int64, in ReminderInput) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodPut, fmt.Sprintf("%s/%d", remindersBase, id), in)
}

func (a *RemindersAPI) Delete(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", remindersBase, id), nil)
}

func (a *RemindersAPI) Toggle(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.c.postRaw(ctx, fmt.Sprintf("%s/%d/toggle", remindersBase, id), nil)
}
