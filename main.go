package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"game-duel-system/handlers"
	"game-duel-system/middleware"
	"game-duel-system/models"
	"game-duel-system/relay"
	"game-duel-system/services"
	"game-duel-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	originList := strings.Split(allowedOrigins, ",")
	for i, origin := range originList {
		originList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(originList, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(middleware.PlayerTokenMiddleware())

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Player{},
		&models.Game{},
		&models.GameSession{},
		&models.RankingEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := seedDefaultGame(db); err != nil {
		log.Fatal("failed to seed default game:", err)
	}

	// Realtime is optional: with no RELAY_ADDR the relay never starts, the
	// notifier stays disabled, and clients fall back to polling alone.
	relayAddr := os.Getenv("RELAY_ADDR") // listen address, e.g. ":5301"
	relayHost := os.Getenv("RELAY_HOST") // public address handed to clients
	relaySecret := os.Getenv("RELAY_SECRET")
	if relaySecret == "" {
		log.Println("⚠️  RELAY_SECRET not set — relay push authentication disabled (development only)")
	}

	var notifier *services.RelayNotifier
	if relayAddr != "" {
		notifier = services.NewRelayNotifier(notifyBase(relayAddr), relaySecret)
		if relayHost == "" {
			relayHost = "localhost" + relayAddr
		}
	} else {
		notifier = services.NewRelayNotifier("", "")
		relayHost = ""
		log.Println("⚠️  RELAY_ADDR not set — realtime disabled, clients rely on polling")
	}

	playerService := services.NewPlayerService(db)
	matchmakingService := services.NewMatchmakingService(db, notifier, relayHost)
	roundService := services.NewRoundService(db, notifier)
	sessionService := services.NewSessionService(db, notifier)
	rankingService := services.NewRankingService(db)

	handlers.SetupPlayerRoutes(app, playerService)
	handlers.SetupDuelRoutes(app, matchmakingService, roundService, sessionService)
	handlers.SetupRankingRoutes(app, rankingService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers.StartSessionReaper(db, notifier)

	if relayAddr != "" {
		go func() {
			if err := relay.Serve(ctx, relayAddr, relaySecret); err != nil {
				log.Printf("Relay server error: %v", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Session reaper running (every minute)")
	log.Printf("✅ CORS configured for origins: %s", strings.Join(originList, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
}

// notifyBase derives the loopback URL the API uses to push into the relay
// from the relay's listen address.
func notifyBase(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}

func seedDefaultGame(db *gorm.DB) error {
	gameSlug := slug.Make("rock paper scissors")

	var game models.Game
	err := db.Where("slug = ?", gameSlug).First(&game).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	game = models.Game{
		ID:     uuid.NewString(),
		Slug:   gameSlug,
		Name:   "Rock Paper Scissors",
		Active: true,
	}
	if err := db.Create(&game).Error; err != nil {
		return err
	}
	log.Printf("✅ Seeded default game: %s (%s)", game.Name, game.Slug)
	return nil
}
