package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	pgloader "classroom-quiz-service/internal/infra/postgres"
	infraredis "classroom-quiz-service/internal/infra/redis"
	"classroom-quiz-service/internal/notify"
	"classroom-quiz-service/internal/quizdata"
	"classroom-quiz-service/internal/transport/chat"
	"classroom-quiz-service/internal/transport/exam"
	transport "classroom-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start every listener.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam, chat, notification and admin servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = infraredis.NewQuestionRepository(redisClient, loader, quizTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, quizTTL)
	}

	var sessions app.SessionTracker
	if redisClient != nil {
		sessions = infraredis.NewSessionTracker(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionTracker()
	}

	duration := config.Duration(cfg.Exam.Duration, 300*time.Second)
	service := app.NewExamService(app.Policy{
		QuizID:          cfg.Quiz.ID,
		Duration:        duration,
		TeacherUsername: cfg.Exam.TeacherUsername,
		TeacherPassword: cfg.Exam.TeacherPassword,
		StudentPassword: cfg.Exam.StudentPassword,
	}, questions, sessions, app.NewResultBoard())

	// Bind everything up front: a bind failure is the only fatal error. The
	// serve loops close these on shutdown too; a second Close is harmless.
	examLn, err := net.Listen("tcp", cfg.Exam.Addr)
	if err != nil {
		return fmt.Errorf("exam listener: %w", err)
	}
	defer examLn.Close()
	chatLn, err := net.Listen("tcp", cfg.Chat.Addr)
	if err != nil {
		return fmt.Errorf("chat listener: %w", err)
	}
	defer chatLn.Close()
	registrations, err := listenUDP(cfg.Notify.RegistrationAddr)
	if err != nil {
		return fmt.Errorf("registration listener: %w", err)
	}
	defer registrations.Close()
	clientRegistrations, err := listenUDP(cfg.Notify.ClientRegisterAddr)
	if err != nil {
		return fmt.Errorf("client registration listener: %w", err)
	}
	defer clientRegistrations.Close()
	control, err := listenUDP(cfg.Notify.ControlAddr)
	if err != nil {
		return fmt.Errorf("control listener: %w", err)
	}
	defer control.Close()
	pollResponses, err := listenUDP(cfg.Poll.ResponseAddr)
	if err != nil {
		return fmt.Errorf("poll response listener: %w", err)
	}
	defer pollResponses.Close()

	var broadcast *net.UDPAddr
	if cfg.Notify.BroadcastAddr != "" {
		if broadcast, err = net.ResolveUDPAddr("udp", cfg.Notify.BroadcastAddr); err != nil {
			return fmt.Errorf("broadcast addr: %w", err)
		}
	}
	engine := notify.NewEngine(notify.Options{
		Duration:      duration,
		RetryDelay:    config.Duration(cfg.Notify.RetryDelay, time.Second),
		ClientPort:    cfg.Notify.ClientPort,
		PollPort:      cfg.Poll.ListenPort,
		BroadcastAddr: broadcast,
	}, notify.UDPSender{Conn: registrations}, notify.SystemClock())

	controlClient, err := notify.DialControl(cfg.Notify.ControlTarget)
	if err != nil {
		return err
	}
	defer controlClient.Close()

	examServer := exam.NewServer(service, controlClient, exam.Options{
		AnswerGrace: config.Duration(cfg.Exam.AnswerGrace, 30*time.Second),
		Liveness:    config.Duration(cfg.Exam.LivenessPeriod, 5*time.Second),
	})
	mux := chat.New(cfg.Chat.OutboundBuffer)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewMux(transport.NewAdminHandler(service, engine), transport.NewWSHandler(service, mux)),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mux.Run(ctx)
		return nil
	})
	g.Go(func() error { return mux.Serve(ctx, chatLn) })
	g.Go(func() error { return examServer.Serve(ctx, examLn) })
	g.Go(func() error { return notify.ServeDatagrams(ctx, registrations, engine.HandleInbound) })
	g.Go(func() error { return notify.ServeDatagrams(ctx, clientRegistrations, engine.HandleInbound) })
	g.Go(func() error { return notify.ServeDatagrams(ctx, pollResponses, engine.HandleInbound) })
	g.Go(func() error { return notify.ServeDatagrams(ctx, control, engine.HandleControl) })
	g.Go(func() error {
		engine.RunClock(ctx, config.Duration(cfg.Notify.SystemTimeInterval, 0))
		return nil
	})
	g.Go(func() error {
		log.Printf("starting admin server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func listenUDP(addr string) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", laddr)
}

// sampleQuizzes is the built-in question set used when no Postgres store is configured.
func sampleQuizzes() map[string]domain.Quiz {
	quiz := quizdata.JavaBasics()
	return map[string]domain.Quiz{quiz.ID: quiz}
}
