package health

import "context"

// StorePinger checks document store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ChatChecker checks chat provider availability.
type ChatChecker interface {
	HealthCheck(ctx context.Context) error
}
