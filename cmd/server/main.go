package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"familia/internal/chat"
	"familia/internal/config"
	"familia/internal/database"
	"familia/internal/handlers"
	"familia/internal/logging"
	"familia/internal/repository"
	"familia/internal/security"
	"familia/internal/service"
	"familia/internal/storage"
	"familia/migrations"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logging.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := service.ValidateSchedule(cfg.ReconcileCron); err != nil {
		return err
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("Database connection established", "type", cfg.DatabaseType)

	var migrationsFS fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		migrationsFS = os.DirFS(cfg.MigrationsPath)
	}
	if err := db.RunMigrations(ctx, migrationsFS); err != nil {
		return err
	}
	slog.Info("Migrations completed successfully")

	notifier, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	pictures, uploadDir, closePictures, err := newPictureStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePictures()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	mailboxRepo := repository.NewMailboxRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	consistencyRepo := repository.NewConsistencyRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, security.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration))
	membershipService := service.NewMembershipService(db, userRepo, familyRepo)
	rosterService := service.NewRosterService(userRepo, familyRepo)
	chatService := service.NewChatService(db, mailboxRepo, notifier)
	calendarService := service.NewCalendarService(calendarRepo, membershipService)
	profileService := service.NewProfileService(userRepo, pictures, cfg.UploadMaxSize)
	reconciler := service.NewReconciler(db, userRepo, familyRepo, consistencyRepo)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		return err
	}
	invitationService := service.NewInvitationService(membershipService, emailService)

	authLimiter := security.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).TrustProxyHeaders(cfg.TrustProxyHeaders)

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(chatService, nil)
	router := handlers.NewRouter(handlers.Routes{
		Middleware:  handlers.NewMiddleware(authService),
		Auth:        handlers.NewAuthHandler(authService, oauthProviders(cfg), cfg.OAuthRedirectBaseURL),
		Family:      handlers.NewFamilyHandler(membershipService, rosterService, invitationService),
		Profile:     handlers.NewProfileHandler(membershipService, profileService, cfg.UploadMaxSize),
		Chat:        chatHandler,
		Calendar:    handlers.NewCalendarHandler(calendarService),
		AuthLimiter: authLimiter,
		UploadDir:   uploadDir,
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		// Hijacked chat streams outlive server.Shutdown
		return errors.Join(err, chatHandler.Shutdown(shutdownCtx))
	})
	g.Go(func() error {
		return reconciler.RunSchedule(gctx, cfg.ReconcileCron)
	})
	g.Go(func() error {
		return authLimiter.Run(gctx, 10*time.Minute)
	})

	return g.Wait()
}

// newNotifier uses NATS when configured so several instances share chat updates
func newNotifier(cfg *config.Config) (chat.Notifier, func(), error) {
	if cfg.NATSURL == "" {
		return chat.NewLocalNotifier(), func() {}, nil
	}
	n, err := chat.NewNATSNotifier(cfg.NATSURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Chat notifications via NATS", "url", cfg.NATSURL)
	return n, func() {
		if err := n.Close(); err != nil {
			slog.Warn("Failed to drain NATS connection", "error", err)
		}
	}, nil
}

// newPictureStore returns the GCS store when a bucket is configured and the
// local store otherwise. The upload dir is empty for GCS.
func newPictureStore(ctx context.Context, cfg *config.Config) (storage.PictureStore, string, func(), error) {
	if cfg.GCSBucket != "" {
		store, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, "", nil, err
		}
		slog.Info("Profile pictures stored in GCS", "bucket", cfg.GCSBucket)
		return store, "", func() { _ = store.Close() }, nil
	}

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return nil, "", nil, err
	}
	return store, store.Dir(), func() {}, nil
}

func oauthProviders(cfg *config.Config) map[string]handlers.OAuthProvider {
	return map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
	}
}
