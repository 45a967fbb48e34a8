package clients

import (
	"context"
	"encoding/json"
)

type ComplianceAPI struct {
	c *Client
}

// ReportQuery bounds a compliance report. Dates are YYYY-MM-DD.
type ReportQuery struct {
	Start  string
	End    string
	Region string
}

func (a *ComplianceAPI) Preview(ctx context.Context, q ReportQuery) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/compliance/report/preview", Params{
		"start":  q.Start,
		"end":    q.End,
		"region": q.Region,
	})
}

// Export downloads the report; format defaults to pdf.
func (a *ComplianceAPI) Export(ctx context.Context, q ReportQuery, format string) (*Blob, error) {
	if format == "" {
		format = "pdf"
	}
	return a.c.Blob(ctx, Request{
		Path: "/api/compliance/report/export",
		Params: Params{
			"start":  q.Start,
			"end":    q.End,
			"region": q.Region,
			"format": format,
		},
	})
}
