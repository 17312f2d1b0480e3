package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"
)

// timed runs probe and stamps the result with its name and duration.
func timed(name string, probe func(r *ComponentHealth)) ComponentHealth {
	start := time.Now()
	r := ComponentHealth{Name: name, LastChecked: start, Metadata: map[string]any{}}
	probe(&r)
	r.Duration = time.Since(start)
	return r
}

// DatabaseHealthChecker pings the refresh-log database.
type DatabaseHealthChecker struct {
	db   *sql.DB
	name string
}

func NewDatabaseHealthChecker(db *sql.DB, name string) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db, name: name}
}

func (c *DatabaseHealthChecker) Name() string { return c.name }

func (c *DatabaseHealthChecker) Check(ctx context.Context) ComponentHealth {
	return timed(c.name, func(r *ComponentHealth) {
		if err := c.db.PingContext(ctx); err != nil {
			r.Status, r.Message, r.Error = HealthStatusUnhealthy, "database unreachable", err.Error()
			return
		}
		st := c.db.Stats()
		r.Status, r.Message = HealthStatusHealthy, "database reachable"
		r.Metadata["open_connections"] = st.OpenConnections
		r.Metadata["in_use"] = st.InUse
	})
}

// FileHealthChecker reports whether a data file or directory exists. A
// missing optional path is degraded rather than unhealthy.
type FileHealthChecker struct {
	name     string
	path     string
	optional bool
}

func NewFileHealthChecker(name, path string, optional bool) *FileHealthChecker {
	return &FileHealthChecker{name: name, path: path, optional: optional}
}

func (c *FileHealthChecker) Name() string { return c.name }

func (c *FileHealthChecker) Check(context.Context) ComponentHealth {
	return timed(c.name, func(r *ComponentHealth) {
		r.Metadata["path"] = c.path
		fi, err := os.Stat(c.path)
		switch {
		case err != nil && c.optional:
			r.Status, r.Message, r.Error = HealthStatusDegraded, "optional data file missing", err.Error()
		case err != nil:
			r.Status, r.Message, r.Error = HealthStatusUnhealthy, "required data path missing", err.Error()
		default:
			r.Status = HealthStatusHealthy
			r.Message = fmt.Sprintf("last modified %s", fi.ModTime().UTC().Format(time.RFC3339))
			r.Metadata["size"] = fi.Size()
		}
	})
}

// PingHealthChecker wraps a ping function such as a cache backend's.
type PingHealthChecker struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingHealthChecker(name string, ping func(ctx context.Context) error) *PingHealthChecker {
	return &PingHealthChecker{name: name, ping: ping}
}

func (c *PingHealthChecker) Name() string { return c.name }

func (c *PingHealthChecker) Check(ctx context.Context) ComponentHealth {
	return timed(c.name, func(r *ComponentHealth) {
		if err := c.ping(ctx); err != nil {
			r.Status, r.Message, r.Error = HealthStatusUnhealthy, "ping failed", err.Error()
			return
		}
		r.Status, r.Message = HealthStatusHealthy, "ping ok"
	})
}
