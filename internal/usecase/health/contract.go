package health

import "context"

// DBPinger checks record store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// QueueChecker checks message bus availability.
type QueueChecker interface {
	HealthCheck(ctx context.Context) error
}

// EnginePinger checks search backend availability. Drivers without a
// cheap ping don't implement it.
type EnginePinger interface {
	Ping(ctx context.Context) error
}
