package api

import (
	"context"

	"github.com/Sternrassler/explorium-cli/pkg/client"
)

// Events wraps the event endpoints of one entity type.
type Events struct {
	doer     Doer
	entity   string
	idsField string
}

// List returns events of the given types for ids.
func (e *Events) List(ctx context.Context, ids, eventTypes []string) (client.Response, error) {
	return post(ctx, e.doer, "/"+e.entity+"/events", map[string]any{
		e.idsField:    ids,
		"event_types": eventTypes,
	}, true)
}

// Enroll subscribes ids to event monitoring under enrollmentKey.
func (e *Events) Enroll(ctx context.Context, ids, eventTypes []string, enrollmentKey string) (client.Response, error) {
	return post(ctx, e.doer, "/"+e.entity+"/events/enrollments", map[string]any{
		e.idsField:       ids,
		"event_types":    eventTypes,
		"enrollment_key": enrollmentKey,
	}, false)
}

// ListEnrollments returns the current enrollments.
func (e *Events) ListEnrollments(ctx context.Context) (client.Response, error) {
	return get(ctx, e.doer, "/"+e.entity+"/events/enrollments", nil, false)
}
