package services

import (
	"context"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// EventService subscribes to the server's live event feed.
type EventService struct {
	base
}

// Subscribe streams /events until ctx ends or the server closes the stream.
// Requires read on tasks, since the feed carries board updates.
func (s *EventService) Subscribe(ctx context.Context, h apiclient.StreamHandlers) error {
	subscribe := rbac.Require(s.checker, rbac.PageTasks, rbac.OpRead, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.client.Stream(ctx, "/events", h)
	})
	_, err := subscribe(ctx)
	return err
}
