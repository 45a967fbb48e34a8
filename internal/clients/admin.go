package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"shdrug/client/internal/session"
)

// AdminAPI covers /api/admin. Every call needs an admin session.
type AdminAPI struct {
	c *Client
}

type UserFilter struct {
	Keyword string
	Role    string
	Status  string
	Page    int
	PerPage int
}

type AuditLogFilter struct {
	AdminID      *int64
	Action       string
	TargetUserID *int64
	Start        string
	End          string
	Page         int
	PerPage      int
}

func (a *AdminAPI) ListUsers(ctx context.Context, f UserFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/admin/users", Params{
		"keyword":  f.Keyword,
		"role":     f.Role,
		"status":   f.Status,
		"page":     orDefault(f.Page, 1),
		"per_page": orDefault(f.PerPage, 10),
	})
}

func (a *AdminAPI) GetUser(ctx context.Context, userID int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("/api/admin/users/%d", userID), nil)
}

// UpdateUserStatus applies an action such as "activate" or "deactivate".
func (a *AdminAPI) UpdateUserStatus(ctx context.Context, userID int64, action string) (json.RawMessage, error) {
	return a.c.postRaw(ctx, fmt.Sprintf("/api/admin/users/%d/status", userID), map[string]string{"action": action})
}

func (a *AdminAPI) UpdateUserRole(ctx context.Context, userID int64, role session.Role, markAuthenticated *bool) (json.RawMessage, error) {
	body := map[string]any{"role": role}
	if markAuthenticated != nil {
		body["mark_authenticated"] = *markAuthenticated
	}
	return a.c.postRaw(ctx, fmt.Sprintf("/api/admin/users/%d/role", userID), body)
}

func (a *AdminAPI) DeleteUser(ctx context.Context, userID int64) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", userID), nil)
}

func (a *AdminAPI) SystemStatus(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/admin/system/status", nil)
}

func (a *AdminAPI) AuditLogs(ctx context.Context, f AuditLogFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/admin/audit-logs", Params{
		"admin_id":       f.AdminID,
		"action":         f.Action,
		"target_user_id": f.TargetUserID,
		"start":          f.Start,
		"end":            f.End,
		"page":           orDefault(f.Page, 1),
		"per_page":       orDefault(f.PerPage, 20),
	})
}

// ExportUsers downloads the user list; format defaults to csv.
func (a *AdminAPI) ExportUsers(ctx context.Context, format string) (*Blob, error) {
	if format == "" {
		format = "csv"
	}
	return a.c.Blob(ctx, Request{Path: "/api/admin/users/export", Params: Params{"format": format}})
}
