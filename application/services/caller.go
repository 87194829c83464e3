package services

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/events"
	pkgerrors "handswers-backend/pkg/errors"
)

// Caller is the authenticated principal making a request.
type Caller struct {
	UserID string
	Email  string
	Roles  []string
}

func (c Caller) HasRole(role string) bool { return slices.Contains(c.Roles, role) }

// IsCreator reports whether the caller may own rooms.
func (c Caller) IsCreator() bool { return c.HasRole(entities.RoleCreator) }

// notFoundAs maps the persistence sentinel to a 404 with message and
// passes every other error through.
func notFoundAs(err error, message string) error {
	if errors.Is(err, ports.ErrNotFound) {
		return pkgerrors.NewNotFoundError(message)
	}
	return err
}

// publish sends evt and only logs a failure; events never fail the
// request that produced them.
func publish(ctx context.Context, p ports.EventPublisher, logger *zap.Logger, evt events.DomainEvent) {
	if err := p.Publish(ctx, evt); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("eventType", evt.GetEventType()),
			zap.String("aggregateId", evt.GetAggregateID()),
			zap.Error(err),
		)
	}
}

func isNotFound(err error) bool { return errors.Is(err, ports.ErrNotFound) }

func isNoUpdate(err error) bool { return errors.Is(err, ports.ErrNoUpdate) }
