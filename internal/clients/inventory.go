package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const inventoryBase = "/api/v1/inventory"

// InventoryAPI covers stock items and their low-stock and expiry warnings.
type InventoryAPI struct {
	c *Client
}

func (a *InventoryAPI) Warnings(ctx context.Context, params Params) (json.RawMessage, error) {
	return a.c.getRaw(ctx, inventoryBase+"/warnings", params)
}

func (a *InventoryAPI) WarningSummary(ctx context.Context) (json.RawMessage, error) {
	return a.c.getRaw(ctx, inventoryBase+"/warning-summary", nil)
}

func (a *InventoryAPI) ScanWarnings(ctx context.Context) (json.RawMessage, error) {
	return a.c.postRaw(ctx, inventoryBase+"/scan-warnings", nil)
}

func (a *InventoryAPI) ListItems(ctx context.Context, params Params) (json.RawMessage, error) {
	return a.c.getRaw(ctx, inventoryBase+"/items", params)
}

func (a *InventoryAPI) GetItem(ctx context.Context, itemID int64) (json.RawMessage, error) {
	return a.c.getRaw(ctx, fmt.Sprintf("%s/items/%d", inventoryBase, itemID), nil)
}

func (a *InventoryAPI) CreateItem(ctx context.Context, payload any) (json.RawMessage, error) {
	return a.c.postRaw(ctx, inventoryBase+"/items", payload)
}

func (a *InventoryAPI) UpdateItem(ctx context.Context, itemID int64, payload any) (json.RawMessage, error) {
	return a.c.sendRaw(ctx, http.MethodPut, fmt.Sprintf("%s/items/%d", inventoryBase, itemID), payload)
}
