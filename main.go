package main

import (
	"auctions/app"
	"auctions/infra/cache"
	"auctions/infra/memory"
	"auctions/infra/postgres"
	"auctions/infra/rabbitmq"
	"auctions/pkg/aws"
	"auctions/pkg/config"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Request any
type Response any

type HandlerInterface[R Request, Res Response] interface {
	Handle(ctx context.Context, req *R) (*Res, error)
}

// handle adapts a handler to fiber. Path params and identity headers are
// decoded after body and query so neither can override them.
func handle[R Request, Res Response](handler HandlerInterface[R, Res]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req R

		if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
			return writeError(c, httperror.BadRequest(
				"request.invalid_body",
				"Invalid body",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.QueryParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_query_params",
				"Invalid query params",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.ParamsParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_path_params",
				"Invalid path params",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.ReqHeaderParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_headers",
				"Invalid headers",
				fiber.Map{"error": err.Error()},
			))
		}

		res, err := handler.Handle(c.UserContext(), &req)
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(res)
	}
}

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	appConfig := config.Read()
	zap.L().Info("app starting...",
		zap.String("port", appConfig.Port),
		zap.String("storageDriver", appConfig.StorageDriver),
		zap.Int("bidMaxAttempts", appConfig.BidMaxAttempts),
	)

	deps := dependencies{
		imageURL:       appConfig.ImageURL,
		serviceName:    appConfig.ServiceName,
		bidMaxAttempts: appConfig.BidMaxAttempts,
	}

	switch appConfig.StorageDriver {
	case config.StorageMemory:
		deps.repository = memory.NewRepository()
	case config.StoragePostgres:
		pgRepository := postgres.NewPgRepository(appConfig.PostgresDSN())
		if err := pgRepository.Migrate(context.Background()); err != nil {
			zap.L().Fatal("Failed to apply schema", zap.Error(err))
		}
		deps.repository = pgRepository
	default:
		zap.L().Fatal("Unknown STORAGE_DRIVER", zap.String("storageDriver", appConfig.StorageDriver))
	}
	defer deps.repository.Close()

	if appConfig.RabbitMQURL != "" {
		publisher, err := rabbitmq.NewRabbitMQPublisher(appConfig.RabbitMQURL, appConfig.ServiceName)
		if err != nil {
			zap.L().Error("Events disabled, RabbitMQ unavailable", zap.Error(err))
		} else {
			if err := publisher.DeclareExchange(events.ListingExchange); err != nil {
				zap.L().Warn("Failed to declare listing exchange", zap.Error(err))
			}
			defer publisher.Close()
			deps.publisher = publisher
		}
	}

	if appConfig.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(context.Background(), appConfig.RedisAddr)
		if err != nil {
			zap.L().Warn("Summary cache disabled, Redis unavailable", zap.Error(err))
		} else {
			defer redisClient.Close()
			deps.cache = cache.NewSummaryCache(redisClient, appConfig.SummaryTTL)
		}
	}

	if appConfig.AWSBucket != "" {
		bucket := aws.NewS3Bucket(appConfig)
		defer bucket.Close()
		deps.images = bucket
	}

	server := newServer()

	prometheus := fiberprometheus.New(appConfig.ServiceName)
	prometheus.RegisterAt(server, "/metrics")
	server.Use(prometheus.Middleware)

	registerRoutes(server, deps)

	go func() {
		if err := server.Listen(fmt.Sprintf("0.0.0.0:%s", appConfig.Port)); err != nil {
			zap.L().Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	zap.L().Info("Server started on port", zap.String("port", appConfig.Port))

	gracefulShutdown(server)
}

func newServer() *fiber.App {
	server := fiber.New(fiber.Config{
		IdleTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Concurrency:  256 * 1024,
		// room for a 5MB image plus multipart framing
		BodyLimit: 6 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return writeError(c, err)
		},
	})

	server.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			zap.L().Error("Recovered from panic",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Any("panic", e),
			)
		},
	}))

	return server
}

func gracefulShutdown(server *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}

func writeError(c *fiber.Ctx, err error) error {
	var httpErr *httperror.Error
	if errors.As(err, &httpErr) {
		if httpErr.Status == fiber.StatusNoContent {
			return c.SendStatus(fiber.StatusNoContent)
		}

		payload := fiber.Map{
			"success": false,
			"code":    httpErr.Code,
			"message": httpErr.Message,
		}

		if httpErr.Details != nil {
			payload["details"] = httpErr.Details
		}

		if httpErr.Status >= fiber.StatusInternalServerError {
			zap.L().Error("Handler returned server error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		} else {
			zap.L().Warn("Handler returned client error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		}

		return c.Status(httpErr.Status).JSON(payload)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		zap.L().Warn("Fiber validation error", zap.String("message", fiberErr.Message), zap.Error(err))
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"code":    "request.invalid",
			"message": fiberErr.Message,
		})
	}

	zap.L().Error("Unhandled error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"code":    "internal_server_error",
		"message": "Internal server error.",
	})
}

var (
	_ app.SummaryCache = (*cache.SummaryCache)(nil)
	_ app.ImageStore   = (*aws.S3)(nil)
)
