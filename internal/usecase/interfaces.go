package usecase

import (
	"context"
	"encoding/json"

	"github.com/homelistingai/leadflow/internal/infra/queue"
)

// Store is the tenant-scoped durable cache. Only the controller writes to it.
type Store interface {
	Read(ctx context.Context, tenant, key string) ([]byte, bool, error)
	Write(ctx context.Context, tenant, key string, data []byte) error
}

// RemoteClient talks to the backend collections API. Each call returns the
// server's whole collection after the operation.
type RemoteClient interface {
	List(ctx context.Context, tenant, resource string) ([]json.RawMessage, error)
	Put(ctx context.Context, tenant, resource, id string, record any) ([]json.RawMessage, error)
	Delete(ctx context.Context, tenant, resource, id string) ([]json.RawMessage, error)
}

type EventPublisher interface {
	PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error
	PublishStepDue(ctx context.Context, payload queue.StepDuePayload) error
}
