package handlers

import (
	"buidl-engine/middleware"
	"buidl-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupHackathonRoutes(app *fiber.App, hackathonService *services.HackathonService, challengeService *services.ChallengeService, judgingService *services.JudgingService) {
	// 🔓 Public read-only queries
	app.Get("/hackathons", hackathonService.ListHackathons)
	app.Get("/hackathons/:id", hackathonService.GetHackathonByID)
	app.Get("/challenges", challengeService.ListChallenges)
	app.Get("/challenges/:id", challengeService.GetChallengeByID)

	// 🔐 Signed-caller actions
	secured := app.Group("/", middleware.AccountContextMiddleware())

	secured.Post("/hackathons", hackathonService.RegisterHackathonEndpoint)
	secured.Patch("/hackathons/:id/periods", hackathonService.UpdatePeriodsEndpoint)
	secured.Post("/hackathons/:id/finalize", judgingService.FinalizeHackathonEndpoint)

	secured.Post("/challenges", challengeService.CreateChallengeEndpoint)
	secured.Put("/challenges/:id", challengeService.EditChallengeEndpoint)
	secured.Post("/challenges/:id/judges", challengeService.AssignJudgesEndpoint)
	secured.Post("/challenges/:id/votes", judgingService.CastJudgeVoteEndpoint)
}
