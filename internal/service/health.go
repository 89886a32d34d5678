package service

import "time"

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthReport describes whether the benchmark program can be run.
type HealthReport struct {
	Status            string    `json:"status"`
	ProgramPath       string    `json:"program_path"`
	ProgramAvailable  bool      `json:"program_available"`
	BuildOnDemand     bool      `json:"build_on_demand"`
	ActiveRuns        int64     `json:"active_runs"`
	MaxConcurrentRuns int       `json:"max_concurrent_runs"`
	Uptime            string    `json:"uptime"`
	Timestamp         time.Time `json:"timestamp"`
	Message           string    `json:"message,omitempty"`
}

// Health reports program availability. A missing program that can be
// built is "degraded"; one that cannot is "unhealthy".
func (s *Service) Health() HealthReport {
	h := HealthReport{
		ProgramPath:       s.opts.ProgramPath,
		ProgramAvailable:  s.runner.ProgramAvailable(),
		BuildOnDemand:     s.opts.CanBuild,
		ActiveRuns:        s.active.Load(),
		MaxConcurrentRuns: s.opts.MaxConcurrentRuns,
		Uptime:            time.Since(s.started).Round(time.Second).String(),
		Timestamp:         time.Now().UTC(),
	}
	switch {
	case h.ProgramAvailable:
		h.Status = StatusHealthy
	case h.BuildOnDemand:
		h.Status = StatusDegraded
		h.Message = "DonutBufferApp is missing; it will be built on the first run"
	default:
		h.Status = StatusUnhealthy
		h.Message = "DonutBufferApp not found; build the project first"
	}
	return h
}
