package rest

import (
	"github.com/AzielCF/aegisx/core/config"
	"github.com/AzielCF/aegisx/pkg/dispatchworker"
	"github.com/gofiber/fiber/v2"
)

// InitRestMonitoring registra los endpoints de monitoreo del sistema
func InitRestMonitoring(app fiber.Router) {
	g := app.Group("/monitoring")

	g.Get("/worker-pool", GetWorkerPoolStats)
	g.Get("/settings", GetSettings)
}

// GetWorkerPoolStats returns real-time dispatch pool statistics
func GetWorkerPoolStats(c *fiber.Ctx) error {
	stats := dispatchworker.GetGlobalStats()
	return c.JSON(stats)
}

// GetSettings returns the dynamic settings currently loaded in memory
func GetSettings(c *fiber.Ctx) error {
	return c.JSON(config.GetAllSettings())
}
