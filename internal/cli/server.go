package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/config"
	"daily-trivia-service/internal/domain"
	filecatalog "daily-trivia-service/internal/infra/file"
	"daily-trivia-service/internal/infra/memory"
	pgcatalog "daily-trivia-service/internal/infra/postgres"
	infraredis "daily-trivia-service/internal/infra/redis"
	transport "daily-trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daily trivia server",
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
	if os.Getenv("BYPASS_DAILY_LIMIT") == "true" {
		cfg.Daily.BypassLimit = true
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(sampleCatalog())
	switch {
	case pool != nil:
		loader = pgcatalog.NewCatalogLoader(pool)
	case cfg.Catalog.ItemsPath != "" && cfg.Catalog.CategoriesPath != "":
		loader = filecatalog.NewCatalogLoader(cfg.Catalog.ItemsPath, cfg.Catalog.CategoriesPath)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalogRepo app.CatalogRepository
	if redisClient != nil {
		catalogRepo = infraredis.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalogRepo = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var store app.KVStore
	if redisClient != nil {
		store = infraredis.NewKVStore(redisClient)
	} else {
		store = memory.NewKVStore()
	}

	identity := memory.NewStaticIdentityProvider(nil)
	board := app.NewLeaderboardAggregator(store, identity)
	progress := app.NewProgressStateMachine(store, board, cfg.Daily.BypassLimit)
	service := app.NewChallengeService(catalogRepo, progress, board)

	// A catalog that cannot fill ten rounds is fatal at startup.
	catalog, err := catalogRepo.GetCatalog(ctx)
	if err != nil {
		return err
	}
	if _, err := app.DaySequence(service.TodayKey(), catalog); err != nil {
		return err
	}
	if cfg.Daily.BypassLimit {
		log.Printf("[daily] bypass mode active: completed sessions are replayable")
	}

	api := transport.NewAPIHandler(service)
	feed := transport.NewLeaderboardFeed(board)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("/ws/leaderboard", feed.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting daily trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog provides a minimal playable catalog; swap in the
// Postgres or file loader for production content.
func sampleCatalog() domain.Catalog {
	directory := []domain.CategoryEntry{
		{Name: "Street Food", Group: "Food", Tags: []string{"food", "travel"}, SFW: true},
		{Name: "Fine Dining", Group: "Food", Tags: []string{"food"}, SFW: true},
		{Name: "Wildlife", Group: "Nature", Tags: []string{"animals", "outdoors"}, SFW: true},
		{Name: "Landscapes", Group: "Nature", Tags: []string{"outdoors", "travel"}, SFW: true},
		{Name: "Astronomy", Group: "Science", Tags: []string{"space", "photos"}, SFW: true},
		{Name: "Microscopy", Group: "Science", Tags: []string{"photos"}, SFW: true},
		{Name: "Architecture", Tags: []string{"travel", "photos"}, SFW: true},
		{Name: "Retro Gaming", Group: "Gaming", Tags: []string{"games"}, SFW: true},
		{Name: "Speedruns", Group: "Gaming", Tags: []string{"games"}, SFW: true},
		{Name: "Synthwave", Group: "Music", Tags: []string{"music"}, SFW: true},
		{Name: "Jazz", Group: "Music", Tags: []string{"music"}, SFW: true},
		{Name: "Urban Sketching", Group: "Art", Tags: []string{"art"}, SFW: true},
	}
	categories := []string{
		"Street Food", "Wildlife", "Astronomy", "Landscapes", "Retro Gaming",
		"Jazz", "Architecture", "Fine Dining", "Microscopy", "Synthwave",
		"Speedruns", "Urban Sketching",
	}
	items := make([]domain.ContentItem, 0, len(categories))
	for i, category := range categories {
		items = append(items, domain.ContentItem{
			ID:        "sample-" + string(rune('a'+i)),
			Title:     "Sample item " + category,
			SourceURL: "https://example.com/items/" + string(rune('a'+i)),
			Category:  category,
			Media:     domain.Media{Type: "image", ThumbURL: "https://example.com/thumb.jpg", URL: "https://example.com/full.jpg"},
			Active:    true,
		})
	}
	return domain.NewCatalog(items, directory)
}
