package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"buidl-engine/handlers"
	"buidl-engine/middleware"
	"buidl-engine/models"
	"buidl-engine/services"
	"buidl-engine/utils"
	"buidl-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // 32MB
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Account-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Hackathon{},
		&models.HackathonAdmin{},
		&models.Challenge{},
		&models.ChallengeJudge{},
		&models.Team{},
		&models.TeamMember{},
		&models.Bounty{},
		&models.BountyVote{},
		&models.SubmittedSolution{},
		&models.SolutionMember{},
		&models.JudgeVote{},
		&models.Wallet{},
		&models.FundLock{},
		&models.ChainCursor{},
		&models.Sequence{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ledgerService := services.NewLedgerService(db)
	hackathonService := services.NewHackathonService(db, ledgerService)
	challengeService := services.NewChallengeService(db, ledgerService)
	teamService := services.NewTeamService(db)
	bountyService := services.NewBountyService(db, ledgerService)
	solutionService := services.NewSolutionService(db, ledgerService)
	judgingService := services.NewJudgingService(db, ledgerService)
	notificationService := services.NewNotificationService(db)

	// Ledger polling keeps the wallet mirror and the height cursor fresh;
	// everything in the engine is gated on that height.
	ledgerSyncClient := workers.NewLedgerSyncClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollLedger(ctx, ledgerSyncClient, 10*time.Second)

	judgingService.StartSettlementScheduler(bountyService)

	handlers.SetupHackathonRoutes(app, hackathonService, challengeService, judgingService)
	handlers.SetupTeamRoutes(app, teamService, bountyService)
	handlers.SetupSubmissionRoutes(app, solutionService, ledgerService, notificationService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Ledger polling running (every 10s)")
	log.Println("✅ Settlement scheduler running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
