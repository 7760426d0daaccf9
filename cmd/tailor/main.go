package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.uber.org/fx"

	"tailor/config"
	"tailor/internal/delivery"
	"tailor/internal/delivery/http"
	"tailor/internal/delivery/http/middleware"
	"tailor/internal/delivery/http/router/handler"
	"tailor/internal/domain/repository"
	"tailor/internal/infra/auth"
	"tailor/internal/infra/auth/google"
	logs "tailor/internal/infra/log"
	"tailor/internal/infra/persistence/memory"
	"tailor/internal/infra/persistence/postgres"
	"tailor/internal/infra/ratelimit"
	"tailor/internal/infra/scraper"
	"tailor/internal/infra/secrets"
	"tailor/internal/infra/session"
	"tailor/internal/usecase"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startBackground,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		newLimiter,
		session.NewStore,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			newUserRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			secrets.NewProvider,
			auth.NewBcryptHasher,
			auth.NewJWTService,
			google.NewOAuthService,
			scraper.NewJobScraper,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			usecase.NewAuthService,
			usecase.NewJobService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewRateLimitMiddleware,
			middleware.NewIsolationMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewJobHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// newUserRepository selects the backing store: PostgreSQL when configured,
// the in-process store otherwise.
func newUserRepository(params postgres.Params) (repository.UserRepository, error) {
	if params.Config.Postgres == nil {
		params.Logger.Info("Postgres not configured, using in-memory user repository")

		return memory.NewUserRepository(), nil
	}

	db, err := postgres.New(params)
	if err != nil {
		return nil, err
	}

	return postgres.NewUserRepository(db), nil
}

func newLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.NewLimiter(cfg.RateLimit)
}

type backgroundParams struct {
	fx.In
	fx.Lifecycle

	Config   *config.Config
	Limiter  *ratelimit.Limiter
	Sessions *session.Store
}

// startBackground runs the window and session sweepers for the lifetime of
// the application.
func startBackground(params backgroundParams) {
	ctx, cancel := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go params.Limiter.Run(ctx, time.Minute)
			go params.Sessions.Run(ctx, params.Config.Session.SweepInterval)

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()

			return nil
		},
	})
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
