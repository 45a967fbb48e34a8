package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

// EnterpriseAPI drives enterprise certification: an unverified account
// submits documents for a role and a regulator or admin reviews them.
type EnterpriseAPI struct {
	c *Client
}

type Application struct {
	Role  string
	Form  map[string]string
	Files []File
}

type ReviewDecision struct {
	Decision   string `json:"decision"`
	ReasonCode string `json:"reason_code,omitempty"`
	Remark     string `json:"remark,omitempty"`
}

func (a *EnterpriseAPI) Requirements(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/enterprise/requirements", nil)
}

func (a *EnterpriseAPI) MyApplication(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/enterprise/me", nil)
}

func (a *EnterpriseAPI) Submit(ctx context.Context, app Application) (json.RawMessage, error) {
	form := &Multipart{}
	form.AddField("role", app.Role)
	keys := make([]string, 0, len(app.Form))
	for key := range app.Form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		form.AddField(key, app.Form[key])
	}
	for _, file := range app.Files {
		if file.Field == "" {
			file.Field = "files"
		}
		form.Files = append(form.Files, file)
	}

	var out json.RawMessage
	err := a.c.JSON(ctx, Request{Method: http.MethodPost, Path: "/api/enterprise/submit", Multipart: form}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Applications lists submissions; status defaults to pending.
func (a *EnterpriseAPI) Applications(ctx context.Context, status, role string) (json.RawMessage, error) {
	if status == "" {
		status = "pending"
	}
	return a.c.getRaw(ctx, "/api/enterprise/applications", Params{"status": status, "role": role})
}

func (a *EnterpriseAPI) ApplicationDetail(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("/api/enterprise/applications/%d", id), nil)
}

func (a *EnterpriseAPI) Review(ctx context.Context, certID int64, decision ReviewDecision) (json.RawMessage, error) {
	return a.c.postRaw(ctx, fmt.Sprintf("/api/enterprise/review/%d", certID), decision)
}
