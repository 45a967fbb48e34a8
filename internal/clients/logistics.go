package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type LogisticsAPI struct {
	c *Client
}

// LogisticsOrderFilter matches order and tracking numbers by substring.
type LogisticsOrderFilter struct {
	OrderNo        string
	TrackingNumber string
	Status         string
	StartDate      string
	EndDate        string
}

type LogisticsStatusUpdate struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

func (a *LogisticsAPI) Orders(ctx context.Context, f LogisticsOrderFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/logistics/orders", Params{
		"order_no":        f.OrderNo,
		"tracking_number": f.TrackingNumber,
		"status":          f.Status,
		"start_date":      f.StartDate,
		"end_date":        f.EndDate,
	})
}

func (a *LogisticsAPI) Companies(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/logistics/companies", nil)
}

func (a *LogisticsAPI) UpdateOrderStatus(ctx context.Context, orderID int64, update LogisticsStatusUpdate) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodPut, fmt.Sprintf("/api/logistics/orders/%d/status", orderID), update)
}

func (a *LogisticsAPI) OrderDetail(ctx context.Context, orderID int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("/api/logistics/orders/%d", orderID), nil)
}
