package clients

import (
	"context"
	"encoding/json"
	"net/url"
)

// CirculationAPI reports and traces drug movements by tracking number.
type CirculationAPI struct {
	c *Client
}

type TraceQuery struct {
	TrackingNumber string
	StartDate      string
	EndDate        string
}

func (a *CirculationAPI) Report(ctx context.Context, payload any) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/circulation/report", payload)
}

func (a *CirculationAPI) Records(ctx context.Context, trackingNumber string) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/circulation/records/"+url.PathEscape(trackingNumber), nil)
}

func (a *CirculationAPI) Trace(ctx context.Context, q TraceQuery) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/circulation/trace", Params{
		"tracking_number": q.TrackingNumber,
		"start_date":      q.StartDate,
		"end_date":        q.EndDate,
	})
}

func (a *CirculationAPI) Dashboard(ctx context.Context, params Params) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/circulation/dashboard", params)
}
