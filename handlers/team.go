package handlers

import (
	"buidl-engine/middleware"
	"buidl-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTeamRoutes(app *fiber.App, teamService *services.TeamService, bountyService *services.BountyService) {
	// 🔓 Public read-only queries
	app.Get("/teams/:id", teamService.GetTeamByID)
	app.Get("/teams/:id/bounties", bountyService.ListTeamBounties)
	app.Get("/bounties/:id", bountyService.GetBountyByID)

	// 🔐 Signed-caller actions
	secured := app.Group("/", middleware.AccountContextMiddleware())

	secured.Post("/teams", teamService.CreateTeamEndpoint)
	secured.Post("/teams/:id/members", teamService.AddMemberEndpoint)

	// Bounty protocol: post/extend for the team, claim for outside buidlers,
	// votes and the founder override to resolve the review.
	secured.Post("/bounties", bountyService.PostBountyEndpoint)
	secured.Patch("/bounties/:id/expiry", bountyService.ExtendBountyExpiryEndpoint)
	secured.Post("/bounties/:id/claim", bountyService.ClaimBountyEndpoint)
	secured.Post("/bounties/:id/votes", bountyService.VoteOnBountyEndpoint)
	secured.Post("/bounties/:id/approve", bountyService.ApproveBountyEndpoint)
}
