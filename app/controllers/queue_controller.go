package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/tooldashai/tooldash/app/repository"
)

// QueueController exposes job queue counters for operators
type QueueController struct {
	queueRepo repository.QueueRepository
}

// NewQueueController creates a new queue controller with repository
func NewQueueController(queueRepo repository.QueueRepository) *QueueController {
	return &QueueController{
		queueRepo: queueRepo,
	}
}

// HandleJobStats returns job counters and current queue lengths
func (qc *QueueController) HandleJobStats(c *fiber.Ctx) error {
	stats, err := qc.queueRepo.GetJobStats()
	if err != nil {
		log.Errorf("[JobQueue] Failed to read job stats: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Job stats unavailable")
	}
	pending, err := qc.queueRepo.GetPendingCount()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Job stats unavailable")
	}
	processing, err := qc.queueRepo.GetProcessingCount()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Job stats unavailable")
	}

	return c.JSON(fiber.Map{
		"stats":      stats,
		"pending":    pending,
		"processing": processing,
	})
}
