package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const announcementsBase = "/api/announcements"

type AnnouncementsAPI struct {
	c *Client
}

type AnnouncementFilter struct {
	Type    string
	Status  string
	Page    int
	PerPage int
}

func (a *AnnouncementsAPI) List(ctx context.Context, f AnnouncementFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, announcementsBase, Params{
		"type":     f.Type,
		"status":   f.Status,
		"page":     orDefault(f.Page, 1),
		"per_page": orDefault(f.PerPage, 10),
	})
}

func (a *AnnouncementsAPI) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("%s/%d", announcementsBase, id), nil)
}

func (a *AnnouncementsAPI) Create(ctx context.Context, payload any) (json.RawMessage, error) {
	return a.c.postRaw(ctx, announcementsBase, payload)
}

func (a *AnnouncementsAPI) Update(ctx context.Context, id int64, payload any) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodPut, fmt.Sprintf("%s/%d", announcementsBase, id), payload)
}

func (a *AnnouncementsAPI) Delete(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", announcementsBase, id), nil)
}

func (a *AnnouncementsAPI) Toggle(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.c.postRaw(ctx, fmt.Sprintf("%s/%d/toggle", announcementsBase, id), nil)
}
