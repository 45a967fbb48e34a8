package clients

import (
	"context"
	"encoding/json"
	"fmt"
)

type HomeAPI struct {
	c *Client
}

func (a *HomeAPI) Stats(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/home/stats", nil)
}

func (a *HomeAPI) HealthNews(ctx context.Context, params Params) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/home/health-news", params)
}

func (a *HomeAPI) UrgentNotices(ctx context.Context, params Params) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/home/urgent-notices", params)
}

func (a *HomeAPI) UserStats(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/home/user-stats", nil)
}

func (a *HomeAPI) RecentActivities(ctx context.Context, params Params) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/home/recent-activities", params)
}

// TodayReminders is the snapshot the reminder poller consumes.
func (a *HomeAPI) TodayReminders(ctx context.Context) (*TodayReminders, error) {
	var out TodayReminders
	if err := a.c.JSON(ctx, Request{Path: "/api/home/today-reminders"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HomeAPI) SearchDrugs(ctx context.Context, keyword string, page, perPage int) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/catalog/drugs/search", Params{
		"q":        keyword,
		"page":     orDefault(page, 1),
		"per_page": orDefault(perPage, 10),
	})
}

func (a *HomeAPI) DrugDetail(ctx context.Context, drugID int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("/api/catalog/drugs/%d", drugID), nil)
}
