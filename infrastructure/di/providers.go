package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/application/services"
	"handswers-backend/infrastructure/config"
	"handswers-backend/infrastructure/messaging/eventbridge"
	"handswers-backend/infrastructure/persistence/dynamodb"
	"handswers-backend/infrastructure/persistence/memory"
	"handswers-backend/interfaces/http/rest"
	"handswers-backend/pkg/ai"
	"handswers-backend/pkg/auth"
	pkgerrors "handswers-backend/pkg/errors"
	"handswers-backend/pkg/observability"
	"handswers-backend/pkg/ratelimit"
)

const serviceName = "handswers-backend"

// devSecret signs tokens outside production when no secret is set.
const devSecret = "development-secret-change-in-production"

// Repositories is the storage backend selected by STORAGE_BACKEND.
type Repositories struct {
	Rooms     ports.RoomRepository
	Questions ports.QuestionRepository
	Messages  ports.MessageRepository
	Cleaner   ports.EntityCleaner
	Locker    ports.Locker
	Users     ports.UserRepository
	Schools   ports.SchoolRepository
	Ready     func(ctx context.Context) error
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at
// DYNAMODB_ENDPOINT when set (DynamoDB Local).
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.AWS.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.DynamoDBEndpoint)
		}
	})
}

// ProvideRepositories builds the DynamoDB or in-memory stores.
func ProvideRepositories(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) *Repositories {
	if cfg.StorageBackend == config.StorageMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &Repositories{
			Rooms:     store.Rooms(),
			Questions: store.Questions(),
			Messages:  store.Messages(),
			Cleaner:   store,
			Locker:    memory.NewLocker(),
			Users:     store.Users(),
			Schools:   store.Schools(),
		}
	}

	retry := dynamodb.DefaultRetryPolicy
	entities := dynamodb.NewEntityStore(client, cfg.Tables.Entities, retry, logger)
	return &Repositories{
		Rooms:     dynamodb.NewRoomRepository(entities),
		Questions: dynamodb.NewQuestionRepository(entities),
		Messages:  dynamodb.NewMessageRepository(entities),
		Cleaner:   entities,
		Locker:    dynamodb.NewLeaseLocker(client, cfg.Tables.Entities, logger),
		Users:     dynamodb.NewUserStore(client, cfg.Tables.Users, retry, logger),
		Schools:   dynamodb.NewSchoolStore(client, cfg.Tables.Schools, retry, logger),
		Ready: func(ctx context.Context) error {
			_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(cfg.Tables.Entities)})
			return err
		},
	}
}

// ProvideEventPublisher sends events to EventBridge, or only logs them
// when no bus is configured.
func ProvideEventPublisher(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
}

// ProvideCollector creates the Prometheus collector behind /metrics.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("handswers")
}

// ProvideBusinessMetrics fans business metrics out to Prometheus and,
// when enabled, CloudWatch.
func ProvideBusinessMetrics(awsCfg aws.Config, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) ports.BusinessMetrics {
	sinks := observability.Multi{collector}
	if cfg.EnableMetrics {
		namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
		sinks = append(sinks, observability.NewMetrics(namespace, awscloudwatch.NewFromConfig(awsCfg), logger))
	}
	return sinks
}

func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideTutor creates the Gemini client. Without an API key outside
// production every tutor call fails with a 500 instead of the process
// refusing to start.
func ProvideTutor(cfg *config.Config, tracer *observability.Tracer, logger *zap.Logger) (ports.Tutor, error) {
	if cfg.AI.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; tutor replies are disabled")
		return unconfiguredTutor{}, nil
	}
	client, err := ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:          cfg.AI.APIKey,
		BaseURL:         cfg.AI.BaseURL,
		Model:           cfg.AI.Model,
		SystemPrompt:    cfg.AI.SystemPrompt,
		Temperature:     cfg.AI.Temperature,
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
		Timeout:         cfg.AI.Timeout,
	}, tracer.HTTPClient(&http.Client{Timeout: cfg.AI.Timeout}), logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type unconfiguredTutor struct{}

func (unconfiguredTutor) Reply(context.Context, []ports.ChatTurn) (string, error) {
	return "", pkgerrors.NewExternalError("gemini", errors.New("GEMINI_API_KEY is not set"))
}

// ProvideJWTService creates the token issuer. Outside production missing
// secrets fall back to a development secret.
func ProvideJWTService(cfg *config.Config, logger *zap.Logger) (*auth.JWTService, error) {
	jwtCfg := auth.JWTConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshSecret: cfg.Auth.RefreshSecret,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Issuer:        cfg.Auth.Issuer,
	}
	if !cfg.IsProduction() {
		if jwtCfg.AccessSecret == "" {
			logger.Warn("JWT_ACCESS_SECRET is not set; using a development secret")
			jwtCfg.AccessSecret = devSecret + "-access"
		}
		if jwtCfg.RefreshSecret == "" {
			logger.Warn("JWT_REFRESH_SECRET is not set; using a development secret")
			jwtCfg.RefreshSecret = devSecret + "-refresh"
		}
	}
	return auth.NewJWTService(jwtCfg)
}

func ProvideIdentityProvider(cfg *config.Config) ports.IdentityProvider {
	return auth.NewGoogleIdentity(auth.GoogleConfig{
		ClientID:     cfg.Auth.GoogleClientID,
		ClientSecret: cfg.Auth.GoogleClientSecret,
		RedirectURL:  cfg.Auth.GoogleRedirectURL,
	})
}

func ProvideCookies(cfg *config.Config) *auth.Cookies {
	return auth.NewCookies(auth.CookieConfig{Secure: cfg.Cookies.Secure, Domain: cfg.Cookies.Domain})
}

// ProvideRateLimiter uses Redis when REDIS_ADDR is set so all instances
// share one quota, and a per-process limiter otherwise.
func ProvideRateLimiter(cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func(), error) {
	rl := cfg.RateLimit
	if rl.RedisAddr == "" {
		limiter, err := ratelimit.NewMemoryLimiter(rl.Requests, rl.Window)
		return limiter, func() {}, err
	}
	client := redis.NewClient(&redis.Options{Addr: rl.RedisAddr, Password: rl.RedisPassword})
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	limiter, err := ratelimit.NewRedisLimiter(client, "", rl.Requests, rl.Window)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return limiter, cleanup, nil
}

func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

func ProvideRoomService(repos *Repositories, publisher ports.EventPublisher, metrics ports.BusinessMetrics, logger *zap.Logger) *services.RoomService {
	return services.NewRoomService(repos.Rooms, repos.Questions, repos.Messages, repos.Cleaner, repos.Locker, publisher, metrics, logger)
}

func ProvideQuestionService(repos *Repositories, publisher ports.EventPublisher, logger *zap.Logger) *services.QuestionService {
	return services.NewQuestionService(repos.Rooms, repos.Questions, publisher, logger)
}

func ProvideMessageService(repos *Repositories, tutor ports.Tutor, metrics ports.BusinessMetrics, cfg *config.Config, logger *zap.Logger) *services.MessageService {
	return services.NewMessageService(repos.Rooms, repos.Questions, repos.Messages, tutor, metrics, logger, cfg.AI.HistorySize)
}

func ProvideAdminService(repos *Repositories, logger *zap.Logger) *services.AdminService {
	return services.NewAdminService(repos.Users, repos.Schools, logger)
}

func ProvideAuthService(repos *Repositories, identity ports.IdentityProvider, tokens *auth.JWTService, logger *zap.Logger) *services.AuthService {
	return services.NewAuthService(repos.Users, identity, tokens, logger)
}

// ProvideHandler assembles the HTTP router.
func ProvideHandler(
	cfg *config.Config,
	repos *Repositories,
	svc rest.Services,
	tokens *auth.JWTService,
	cookies *auth.Cookies,
	limiter ratelimit.Limiter,
	collector *observability.Collector,
	tracer *observability.Tracer,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(svc, tokens, cookies, limiter, collector, tracer, errs, cfg.FrontendURL, repos.Ready, logger).Setup()
}
