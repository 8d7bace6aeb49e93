package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"tweeter/internal/api"
	"tweeter/internal/auth"
	"tweeter/internal/config"
	"tweeter/internal/logging"
	"tweeter/internal/storage"
	"tweeter/internal/tweets"
	"tweeter/internal/users"
)

type app struct {
	auth         *auth.Authenticator
	flashes      *auth.Flashes
	tweets       *tweets.Service
	users        *users.Service
	templatesDir string
	staticDir    string
}

func newApp(cfg *config.Config) (*app, error) {
	secret := []byte(cfg.Session.Secret)
	sessions, err := auth.NewSessions(cfg.Session.Backend, secret, cfg.Session.TokenTTL)
	if err != nil {
		return nil, err
	}

	us := users.New(cfg.Auth.BcryptCost)
	return &app{
		auth:         auth.NewAuthenticator(us, sessions),
		flashes:      auth.NewFlashes(secret),
		tweets:       tweets.New(),
		users:        us,
		templatesDir: cfg.Templates.Dir,
		staticDir:    cfg.Static.Dir,
	}, nil
}

func setupRouter(a *app, store *storage.Store) *mux.Router {
	r := mux.NewRouter()
	r.Use(logging.Middleware)

	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(a.staticDir))))

	// Everything else runs on a request-scoped connection.
	site := r.NewRoute().Subrouter()
	site.Use(store.Middleware)

	api.NewHandler(a.tweets, a.users).RegisterRoutes(site)

	site.HandleFunc("/", a.indexHandler).Methods(http.MethodGet)
	site.HandleFunc("/profile", a.profileHandler).Methods(http.MethodGet)
	site.HandleFunc("/login", a.loginHandler).Methods(http.MethodGet, http.MethodPost)
	site.HandleFunc("/register", a.registerHandler).Methods(http.MethodGet, http.MethodPost)
	site.HandleFunc("/logout", a.logoutHandler).Methods(http.MethodGet)

	return r
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	// --- Logging ---
	if cfg.Log.File != "" {
		logFile, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			log.Fatalln("failed to open log file:", err)
		}
		defer logFile.Close()
		logging.InitLogger(cfg.Log.Level, logFile)
	} else {
		logging.InitLogger(cfg.Log.Level, nil)
	}
	if cfg.Session.Secret == config.DevSecret {
		log.Warn("session.secret is the development default; set TWEETER_SESSION_SECRET")
	}

	// --- Storage ---
	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalln("failed to open database:", err)
	}
	defer store.Close()

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalln("failed to set up application:", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      setupRouter(a, store),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error during shutdown")
	}
	log.Info("Server gracefully stopped")
}
