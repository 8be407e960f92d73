package rest

import (
	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Emergency struct {
	Service domainEmergency.IEmergencyUsecase
}

func InitRestEmergency(app fiber.Router, service domainEmergency.IEmergencyUsecase) Emergency {
	rest := Emergency{Service: service}
	app.Post("/emergency-mode", rest.Activate)
	app.Get("/emergency-mode", rest.Current)

	return rest
}

func (h *Emergency) Activate(c *fiber.Ctx) error {
	var request domainEmergency.ActivateRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	mode, err := h.Service.Activate(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Emergency mode updated",
		Results: mode,
	})
}

func (h *Emergency) Current(c *fiber.Ctx) error {
	schoolID := c.Query("school_id")
	if schoolID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("school_id: query parameter is required"))
	}

	mode := h.Service.Current(c.UserContext(), schoolID)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Emergency mode retrieved",
		Results: mode,
	})
}
