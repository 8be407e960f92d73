package rest

import (
	"time"

	domainAudit "github.com/AzielCF/aegisx/domains/audit"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Audit struct {
	Service domainAudit.IAuditUsecase
}

func InitRestAudit(app fiber.Router, service domainAudit.IAuditUsecase) Audit {
	rest := Audit{Service: service}
	app.Get("/audit/decisions", rest.ListDecisions)
	app.Get("/audit/stats", rest.Stats)

	return rest
}

func (h *Audit) ListDecisions(c *fiber.Ctx) error {
	schoolID := c.Query("school_id")
	if schoolID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("school_id: query parameter is required"))
	}

	filter := domainAudit.Filter{
		SchoolID:     schoolID,
		CredentialID: c.Query("credential_id"),
		ReaderID:     c.Query("reader_id"),
		Action:       c.Query("action"),
		Limit:        c.QueryInt("limit"),
		Offset:       c.QueryInt("offset"),
	}

	if v := c.Query("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.PanicIfNeeded(pkgError.ValidationError("since: must be RFC3339"))
		}
		filter.Since = &ts
	}
	if v := c.Query("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.PanicIfNeeded(pkgError.ValidationError("until: must be RFC3339"))
		}
		filter.Until = &ts
	}

	records, err := h.Service.List(c.UserContext(), filter)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Decision records retrieved",
		Results: records,
	})
}

func (h *Audit) Stats(c *fiber.Ctx) error {
	schoolID := c.Query("school_id")
	if schoolID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("school_id: query parameter is required"))
	}

	stats, err := h.Service.Stats(c.UserContext(), schoolID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Audit stats retrieved",
		Results: stats,
	})
}
