package hive

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hivemail/hivemail/internal/types"
)

// ReserveFilesInput is the reserve_files operation's input.
type ReserveFilesInput struct {
	ProjectPath string
	Agent       string
	Paths       []string
	Reason      string
	// Exclusive defaults to true at the RPC/CLI layer, which must supply the
	// default explicitly — Go's zero value can't distinguish "not set" from
	// "set false".
	Exclusive  bool
	TTLSeconds int64
	Force      bool // accepted, currently a no-op (reserved for pre-emption)
}

// ReserveFilesResult is reserve_files's return value. Reservations are
// always granted; conflicts are advisory only, per the cooperative-locks
// policy.
type ReserveFilesResult struct {
	Granted   []string   `json:"granted"`
	Conflicts []Conflict `json:"conflicts"`
}

const defaultTTLSeconds = 3600

// ReserveFiles grants locks over every requested path unconditionally,
// reporting overlaps with other agents' active reservations as advisory
// conflicts rather than failing the call.
func (s *Store) ReserveFiles(ctx context.Context, in ReserveFilesInput) (ReserveFilesResult, error) {
	if in.Agent == "" {
		return ReserveFilesResult{}, &ValidationError{Field: "agent", Reason: "must not be empty"}
	}
	if len(in.Paths) == 0 {
		return ReserveFilesResult{}, &ValidationError{Field: "paths", Reason: "must name at least one path"}
	}
	ttl := in.TTLSeconds
	if ttl <= 0 {
		ttl = defaultTTLSeconds
	}

	db, err := s.projectDB(in.ProjectPath)
	if err != nil {
		return ReserveFilesResult{}, &StorageError{Op: "open project db", Err: err}
	}

	active, err := activeReservations(ctx, db, in.ProjectPath, s.now())
	if err != nil {
		return ReserveFilesResult{}, &StorageError{Op: "load active reservations", Err: err}
	}

	var conflicts []Conflict
	for _, path := range in.Paths {
		for _, holder := range active {
			if holder.AgentName == in.Agent {
				continue
			}
			if pathsConflict(path, holder.PathPattern) && (in.Exclusive || holder.Exclusive) {
				conflicts = append(conflicts, Conflict{Path: path, Holder: holder.AgentName, Pattern: holder.PathPattern})
			}
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ReserveFilesResult{}, &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	occurredAt := s.now()
	expiresAt := s.clock().Add(time.Duration(ttl) * time.Second).UTC().Format(time.RFC3339Nano)
	ev := types.FileReservedEvent{
		BaseEvent:  types.BaseEvent{Kind: "file_reserved", ProjectKey: in.ProjectPath, OccurredAt: occurredAt},
		AgentName:  in.Agent,
		Paths:      in.Paths,
		Exclusive:  in.Exclusive,
		Reason:     in.Reason,
		TTLSeconds: ttl,
		ExpiresAt:  expiresAt,
	}

	if _, err := appendAndApply(tx, in.ProjectPath, ev.Kind, occurredAt, ev); err != nil {
		return ReserveFilesResult{}, &StorageError{Op: "reserve files", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return ReserveFilesResult{}, &StorageError{Op: "commit", Err: err}
	}

	return ReserveFilesResult{Granted: in.Paths, Conflicts: conflicts}, nil
}

// ReleaseFilesInput is the release_files operation's input. At most one of
// Paths/ReservationIDs should be set; if neither is set, every active
// reservation held by Agent is released.
type ReleaseFilesInput struct {
	ProjectPath    string
	Agent          string
	Paths          []string
	ReservationIDs []int64
}

// ReleaseFilesResult is release_files's return value.
type ReleaseFilesResult struct {
	ReleasedCount int    `json:"released_count"`
	ReleasedAt    string `json:"released_at"`
}

// ReleaseFiles releases reservations held by Agent. Zero matches is not an
// error; a file_released event is still recorded for audit continuity.
func (s *Store) ReleaseFiles(ctx context.Context, in ReleaseFilesInput) (ReleaseFilesResult, error) {
	if in.Agent == "" {
		return ReleaseFilesResult{}, &ValidationError{Field: "agent", Reason: "must not be empty"}
	}

	db, err := s.projectDB(in.ProjectPath)
	if err != nil {
		return ReleaseFilesResult{}, &StorageError{Op: "open project db", Err: err}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ReleaseFilesResult{}, &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	occurredAt := s.now()

	// Count rows eligible for release before the projection update mutates
	// them, so the reported count reflects exactly what this call affects —
	// the projection applies the identical predicate (internal/projection).
	var countQuery string
	countArgs := []any{in.ProjectPath, in.Agent}
	switch {
	case len(in.ReservationIDs) > 0:
		countQuery = `SELECT COUNT(*) FROM reservations WHERE agent_name = ? AND released_at IS NULL AND id IN (` + placeholders(len(in.ReservationIDs)) + `)`
		countArgs = []any{in.Agent}
		for _, id := range in.ReservationIDs {
			countArgs = append(countArgs, id)
		}
	case len(in.Paths) > 0:
		countQuery = `SELECT COUNT(*) FROM reservations WHERE project_key = ? AND agent_name = ? AND released_at IS NULL AND path_pattern IN (` + placeholders(len(in.Paths)) + `)`
		for _, p := range in.Paths {
			countArgs = append(countArgs, p)
		}
	default:
		countQuery = `SELECT COUNT(*) FROM reservations WHERE project_key = ? AND agent_name = ? AND released_at IS NULL`
	}

	var affected int64
	if err := tx.QueryRow(countQuery, countArgs...).Scan(&affected); err != nil {
		return ReleaseFilesResult{}, &StorageError{Op: "count releasable reservations", Err: err}
	}

	ev := types.FileReleasedEvent{
		BaseEvent:      types.BaseEvent{Kind: "file_released", ProjectKey: in.ProjectPath, OccurredAt: occurredAt},
		AgentName:      in.Agent,
		ReservationIDs: in.ReservationIDs,
		Paths:          in.Paths,
	}
	if _, err := appendAndApply(tx, in.ProjectPath, ev.Kind, occurredAt, ev); err != nil {
		return ReleaseFilesResult{}, &StorageError{Op: "record file_released", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return ReleaseFilesResult{}, &StorageError{Op: "commit", Err: err}
	}

	return ReleaseFilesResult{ReleasedCount: int(affected), ReleasedAt: occurredAt}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type reservationHolder struct {
	AgentName   string
	PathPattern string
	Exclusive   bool
}

func activeReservations(ctx context.Context, db *sql.DB, projectKey, now string) ([]reservationHolder, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT agent_name, path_pattern, exclusive FROM reservations
		 WHERE project_key = ? AND released_at IS NULL AND expires_at > ?`,
		projectKey, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holders []reservationHolder
	for rows.Next() {
		var h reservationHolder
		var excl int
		if err := rows.Scan(&h.AgentName, &h.PathPattern, &excl); err != nil {
			return nil, err
		}
		h.Exclusive = excl != 0
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

// pathsConflict implements the minimum documented pattern language: literal
// equality, directory-prefix containment (either side), and "*" as a
// wildcard segment: any segment that is exactly "*" matches one path
// segment, in any position. Any richer glob syntax is out of scope; extend
// matchWildcard to support more.
func pathsConflict(a, b string) bool {
	if a == b {
		return true
	}
	if isDirPrefix(a, b) || isDirPrefix(b, a) {
		return true
	}
	return matchWildcard(a, b) || matchWildcard(b, a)
}

func isDirPrefix(dir, path string) bool {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return strings.HasPrefix(path, dir)
}

// matchWildcard reports whether pattern (whose segments may be "*") matches
// path, segment by segment. Extend here to support richer
// glob syntax.
func matchWildcard(pattern, path string) bool {
	if !strings.Contains(pattern, "*") {
		return false
	}
	patternSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(path, "/")
	if len(patternSegs) != len(pathSegs) {
		return false
	}
	for i, seg := range patternSegs {
		if seg == "*" {
			continue
		}
		if seg != pathSegs[i] {
			return false
		}
	}
	return true
}
