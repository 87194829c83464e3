package di

import (
	"net/http"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"handswers-backend/infrastructure/config"
)

// Container holds the wired application.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	DynamoDB *awsdynamodb.Client
	Handler  http.Handler
}
