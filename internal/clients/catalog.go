package clients

import (
	"context"
	"encoding/json"
)

// CatalogAPI reads the public drug, tenant and stock catalog.
type CatalogAPI struct {
	c *Client
}

type DrugFilter struct {
	Keyword          string
	Category         string
	PrescriptionType string
	Page             int
	PerPage          int
}

type TenantFilter struct {
	Keyword  string
	Type     string
	IsActive *bool
	Page     int
	PerPage  int
}

type StockFilter struct {
	Keyword  string
	TenantID *int64
	DrugID   *int64
	Page     int
	PerPage  int
}

func (a *CatalogAPI) Drugs(ctx context.Context, f DrugFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/catalog/drugs", Params{
		"keyword":           f.Keyword,
		"category":          f.Category,
		"prescription_type": f.PrescriptionType,
		"page":              orDefault(f.Page, 1),
		"per_page":          orDefault(f.PerPage, 10),
	})
}

func (a *CatalogAPI) Tenants(ctx context.Context, f TenantFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/catalog/tenants", Params{
		"keyword":   f.Keyword,
		"type":      f.Type,
		"is_active": f.IsActive,
		"page":      orDefault(f.Page, 1),
		"per_page":  orDefault(f.PerPage, 10),
	})
}

func (a *CatalogAPI) Inventory(ctx context.Context, f StockFilter) (json.RawMessage, error) {
	return a.c.getRaw(ctx, "/api/catalog/inventory", Params{
		"keyword":   f.Keyword,
		"tenant_id": f.TenantID,
		"drug_id":   f.DrugID,
		"page":      orDefault(f.Page, 1),
		"per_page":  orDefault(f.PerPage, 10),
	})
}
