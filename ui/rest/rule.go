package rest

import (
	"errors"

	domainRule "github.com/AzielCF/aegisx/domains/rule"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Rule struct {
	Service domainRule.IRuleUsecase
}

func InitRestRule(app fiber.Router, service domainRule.IRuleUsecase) Rule {
	rest := Rule{Service: service}
	app.Get("/access-rules", rest.ListRules)
	app.Post("/access-rules", rest.CreateRule)
	app.Get("/access-rules/:id", rest.GetRule)
	app.Patch("/access-rules/:id", rest.UpdateRule)
	app.Delete("/access-rules/:id", rest.DeleteRule)

	return rest
}

func (h *Rule) ListRules(c *fiber.Ctx) error {
	schoolID := c.Query("school_id")
	if schoolID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("school_id: query parameter is required"))
	}

	rules, err := h.Service.List(c.UserContext(), schoolID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rules retrieved",
		Results: rules,
	})
}

func (h *Rule) CreateRule(c *fiber.Ctx) error {
	var request domainRule.CreateRuleRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	created, err := h.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Rule created",
		Results: created,
	})
}

func (h *Rule) GetRule(c *fiber.Ctx) error {
	rule, err := h.Service.GetByID(c.UserContext(), c.Params("id"))
	if errors.Is(err, domainRule.ErrRuleNotFound) {
		utils.PanicIfNeeded(pkgError.NotFoundError("rule not found"))
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rule retrieved",
		Results: rule,
	})
}

func (h *Rule) UpdateRule(c *fiber.Ctx) error {
	var request domainRule.UpdateRuleRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	updated, err := h.Service.Update(c.UserContext(), c.Params("id"), request)
	if errors.Is(err, domainRule.ErrRuleNotFound) {
		utils.PanicIfNeeded(pkgError.NotFoundError("rule not found"))
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rule updated",
		Results: updated,
	})
}

func (h *Rule) DeleteRule(c *fiber.Ctx) error {
	err := h.Service.Delete(c.UserContext(), c.Params("id"))
	if errors.Is(err, domainRule.ErrRuleNotFound) {
		utils.PanicIfNeeded(pkgError.NotFoundError("rule not found"))
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rule deleted",
	})
}
