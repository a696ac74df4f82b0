package rpc

import (
	"context"
	"encoding/json"

	"github.com/hivemail/hivemail/internal/hive"
)

// ReserveFilesParams is the reserve_files request payload. Exclusive is a
// pointer so an omitted field can be told apart from an explicit false; per
// the spec's default, omitted means true.
type ReserveFilesParams struct {
	ProjectPath string   `json:"project_path"`
	Agent       string   `json:"agent"`
	Paths       []string `json:"paths"`
	Reason      string   `json:"reason,omitempty"`
	Exclusive   *bool    `json:"exclusive,omitempty"`
	TTLSeconds  int64    `json:"ttl_seconds,omitempty"`
	Force       bool     `json:"force,omitempty"`
}

// ReservationHandler implements reserve_files and release_files.
type ReservationHandler struct {
	store *hive.Store
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(store *hive.Store) *ReservationHandler {
	return &ReservationHandler{store: store}
}

// HandleReserve handles the reserve_files request.
func (h *ReservationHandler) HandleReserve(ctx context.Context, params json.RawMessage) (any, error) {
	var p ReserveFilesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	exclusive := true
	if p.Exclusive != nil {
		exclusive = *p.Exclusive
	}

	return h.store.ReserveFiles(ctx, hive.ReserveFilesInput{
		ProjectPath: p.ProjectPath,
		Agent:       p.Agent,
		Paths:       p.Paths,
		Reason:      p.Reason,
		Exclusive:   exclusive,
		TTLSeconds:  p.TTLSeconds,
		Force:       p.Force,
	})
}

// ReleaseFilesParams is the release_files request payload.
type ReleaseFilesParams struct {
	ProjectPath    string   `json:"project_path"`
	Agent          string   `json:"agent"`
	Paths          []string `json:"paths,omitempty"`
	ReservationIDs []int64  `json:"reservation_ids,omitempty"`
}

// HandleRelease handles the release_files request.
func (h *ReservationHandler) HandleRelease(ctx context.Context, params json.RawMessage) (any, error) {
	var p ReleaseFilesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return h.store.ReleaseFiles(ctx, hive.ReleaseFilesInput{
		ProjectPath:    p.ProjectPath,
		Agent:          p.Agent,
		Paths:          p.Paths,
		ReservationIDs: p.ReservationIDs,
	})
}
