package rest

import (
	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Decision struct {
	Service domainDecision.IDecisionUsecase
}

func InitRestDecision(app fiber.Router, service domainDecision.IDecisionUsecase) Decision {
	rest := Decision{Service: service}
	app.Post("/access-decision", rest.Decide)
	app.Post("/access-decision/:attemptId/pin", rest.FinalizePin)

	return rest
}

func (h *Decision) Decide(c *fiber.Ctx) error {
	// Readers that do not track a daily entry count omit the field; the
	// default must be "unknown" so the engine fills it from the audit sink.
	request := domainDecision.Attempt{EntriesSoFarToday: -1}
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}
	if request.SchoolID == "" || request.CredentialID == "" || request.ReaderID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("school_id, credential_id and reader_id are required"))
	}

	result, err := h.Service.Decide(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Decision evaluated",
		Results: result,
	})
}

func (h *Decision) FinalizePin(c *fiber.Ctx) error {
	var request domainDecision.PinRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	result, err := h.Service.FinalizePin(c.UserContext(), c.Params("attemptId"), request.PinOK)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pin challenge finalized",
		Results: result,
	})
}
