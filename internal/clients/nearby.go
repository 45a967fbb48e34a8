package clients

import (
	"context"
	"encoding/json"
	"net/http"
)

// NearbyAPI finds suppliers around a pharmacy. Coordinates are GCJ-02
// longitude/latitude as the backend's map provider returns them.
type NearbyAPI struct {
	c *Client
}

type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// SupplierQuery locates by coordinates, or by address and city when the
// coordinates are nil.
type SupplierQuery struct {
	Longitude   *float64 `json:"longitude,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	MaxDistance int      `json:"max_distance,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	UseAPI      bool     `json:"use_api,omitempty"`
}

type LocationUpdate struct {
	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
}

func (a *NearbyAPI) Suppliers(ctx context.Context, q SupplierQuery) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/nearby/suppliers", q)
}

func (a *NearbyAPI) Geocode(ctx context.Context, address, city string) (json.RawMessage, error) {
	body := map[string]any{"address": address, "city": nil}
	if city != "" {
		body["city"] = city
	}
	return a.c.postRaw(ctx, "/api/nearby/geocode", body)
}

func (a *NearbyAPI) Distance(ctx context.Context, origin, destination Point, useAPI bool) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/nearby/distance", map[string]any{
		"origin":      origin,
		"destination": destination,
		"use_api":     useAPI,
	})
}

func (a *NearbyAPI) MyLocation(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/nearby/my-location", nil)
}

func (a *NearbyAPI) UpdateMyLocation(ctx context.Context, update LocationUpdate) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodPut, "/api/nearby/update-location", update)
}
