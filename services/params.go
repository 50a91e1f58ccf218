package services

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func parseChallengeID(c *fiber.Ctx) (uint16, error) {
	v, err := strconv.ParseUint(c.Params("id"), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func parseTeamID(c *fiber.Ctx, param string) (uint32, error) {
	v, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func parseBountyID(c *fiber.Ctx) (uint32, error) {
	v, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
