package handlers

import (
	"buidl-engine/middleware"
	"buidl-engine/services"
	"buidl-engine/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(app *fiber.App, solutionService *services.SolutionService, ledgerService *services.LedgerService, notificationService *services.NotificationService) {
	// 🔓 Public read-only queries
	app.Get("/challenges/:id/solutions", solutionService.ListChallengeSolutions)
	app.Get("/wallets/:account", ledgerService.GetWallet)
	app.Get("/height", ledgerService.GetHeight)
	app.Get("/notifications", notificationService.ListNotifications)
	app.Get("/notifications/stream", notificationService.StreamNotificationsSSE)

	// 🔐 Signed-caller actions
	secured := app.Group("/", middleware.AccountContextMiddleware())

	secured.Post("/challenges/:id/solutions", solutionService.SubmitSolutionEndpoint)

	// Content-addressed blob upload: briefs and solutions are stored in R2
	// keyed by their sha-256 digest, and only the digest goes on the ledger.
	secured.Post("/blobs", func(c *fiber.Ctx) error {
		content := c.Body()
		if len(content) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Empty body"})
		}

		digest, err := utils.UploadBlob(c.Context(), content)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store blob"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"digest": digest,
			"url":    utils.BlobURL(digest),
		})
	})
}
