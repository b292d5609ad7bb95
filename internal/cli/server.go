package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	infraredis "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/logging"
	"live-quiz-service/internal/metrics"
	transport "live-quiz-service/internal/transport/http"
)

const serviceName = "live-quiz-service"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stack is the wired service plus whatever must be closed on shutdown.
type stack struct {
	service *app.GameService
	hub     *transport.Hub
	closers []func()
}

func (s *stack) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildStack picks Redis and Postgres implementations when configured and
// falls back to in-memory ones otherwise.
func buildStack(ctx context.Context, cfg config.Config, log *logrus.Entry, reg prometheus.Registerer) (*stack, error) {
	st := &stack{hub: transport.NewHub(log.WithField("component", "hub"))}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var (
		records app.SessionRecordStore = memory.NewSessionRecordStore()
		history app.HistoryStore       = memory.NewHistoryStore()
		teams   app.TeamDirectory      = memory.NewTeamDirectory()
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)
		db := postgres.OpenBun(cfg.Postgres.URL)
		st.closers = append(st.closers, func() { _ = db.Close() })

		loader = postgres.NewQuizLoader(pool)
		sessions := postgres.NewSessionStore(db)
		records, history = sessions, sessions
		teams = postgres.NewTeamDirectory(db)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	roomTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)
	var (
		quizRepo  app.QuizRepository
		roomCache app.RoomCache
		results   app.ResultsCache
	)
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		roomCache = infraredis.NewRoomCache(redisClient, roomTTL)
		results = infraredis.NewResultsCache(redisClient)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		roomCache = memory.NewRoomCache()
		results = memory.NewResultsCache()
	}

	appLog := log.WithField("component", "game")
	st.service = app.NewGameService(app.Dependencies{
		Registry: app.NewSessionRegistry(roomCache, appLog),
		Quizzes:  quizRepo,
		Teams:    teams,
		Records:  records,
		History:  history,
		Results:  results,
		Notifier: st.hub,
	},
		app.WithLogger(appLog),
		app.WithMetrics(metrics.New(reg)),
		app.WithMaxPlayers(cfg.Game.MaxPlayers),
		app.WithResultsDelay(config.TTLDuration(cfg.Game.ResultsDelay, 8*time.Second)),
		app.WithResultsTTL(config.TTLDuration(cfg.Game.ResultsTTL, 24*time.Hour)),
		app.WithPersistTimeout(config.TTLDuration(cfg.Game.PersistTimeout, 5*time.Second)),
	)
	log.WithFields(logrus.Fields{
		"redis":    redisClient != nil,
		"postgres": cfg.Postgres.URL != "",
	}).Info("game service wired")
	return st, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.NewLogger(serviceName, cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	st, err := buildStack(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer st.close()

	handlerLog := log.WithField("component", "http")
	router := transport.NewRouter(
		transport.NewWSHandler(st.service, st.hub, handlerLog),
		transport.NewResultsHandler(st.service, handlerLog),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", finalPort).Info("starting live quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		st.service.Flush()
		return err
	})
	return g.Wait()
}

// sampleQuizzes backs the in-memory loader when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID: "quiz-1",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					Points:    1000,
					TimeLimit: 20,
				},
				{
					ID:     "q2",
					Prompt: "Which planet is known as the Red Planet?",
					Options: []domain.Option{
						{ID: "o1", Text: "Venus"},
						{ID: "o2", Text: "Mars", Correct: true},
						{ID: "o3", Text: "Jupiter"},
						{ID: "o4", Text: "Saturn"},
					},
					TimeLimit: 20,
				},
			},
		},
	}
}
