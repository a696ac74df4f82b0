package rpc

import (
	"context"
	"encoding/json"

	"github.com/hivemail/hivemail/internal/hive"
)

// HealthParams is the check_health request payload. ProjectPath is optional:
// an empty value checks only that the store itself is usable.
type HealthParams struct {
	ProjectPath string `json:"project_path"`
}

// HealthHandler implements the check_health RPC method.
type HealthHandler struct {
	store *hive.Store
}

// NewHealthHandler creates a new check_health handler.
func NewHealthHandler(store *hive.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Handle handles the check_health request.
func (h *HealthHandler) Handle(ctx context.Context, params json.RawMessage) (any, error) {
	var p HealthParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
	}
	return h.store.CheckHealth(ctx, p.ProjectPath)
}
