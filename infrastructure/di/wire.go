//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"handswers-backend/infrastructure/config"
	"handswers-backend/interfaces/http/rest"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideRepositories,
	ProvideEventPublisher,
	ProvideCollector,
	ProvideBusinessMetrics,
	ProvideTracer,
	ProvideTutor,
	ProvideJWTService,
	ProvideIdentityProvider,
	ProvideCookies,
	ProvideRateLimiter,
	ProvideErrorHandler,
	ProvideRoomService,
	ProvideQuestionService,
	ProvideMessageService,
	ProvideAdminService,
	ProvideAuthService,
	wire.Struct(new(rest.Services), "*"),
	ProvideHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
