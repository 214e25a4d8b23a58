package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service reports process and dependency health.
type Service struct {
	DB        Pinger
	Storage   string
	Notifier  string
	StartedAt time.Time
}

// NewService constructs a health service. db may be nil when running on memory repos.
func NewService(db Pinger, storage, notifier string) *Service {
	return &Service{DB: db, Storage: storage, Notifier: notifier, StartedAt: time.Now()}
}

type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
	Notifier string `json:"notifier"`
	Uptime   string `json:"uptime"`
}

// Check pings the database. Memory mode is always healthy.
func (s *Service) Check(ctx context.Context) Status {
	st := Status{
		OK:       true,
		Database: "memory",
		Storage:  s.Storage,
		Notifier: s.Notifier,
		Uptime:   time.Since(s.StartedAt).Round(time.Second).String(),
	}
	if s.DB == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.OK = false
		st.Database = "unreachable"
		return st
	}
	st.Database = "ok"
	return st
}
