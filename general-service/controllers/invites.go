package controllers

import (
	"github.com/canvasly/canvasly-server/general-service/config"
	"github.com/canvasly/canvasly-server/general-service/invitations"
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
)

type InvitesController struct {
	fx.In

	Engine *invitations.Engine
}

func RegisterInvitesController(r *utils.Router, config *config.Config, c InvitesController) {
	r.Post("/invites", utils.Protected(standardRoute), func(ctx *fiber.Ctx) error {
		return c.createInvite(ctx, config)
	})
	r.Get("/invites/:token", c.inspectInvite)
	r.Post("/invites/:token/accept", utils.Protected(standardRoute), c.acceptInvite)
}

type createInviteConfig struct {
	Email     string          `json:"email" validate:"required,email"`
	ProjectId utils.NumericId `json:"projectId" validate:"required,min=1"`
	Role      string          `json:"role"`
}

func engineError(c *fiber.Ctx, err error) error {
	status := invitations.StatusCode(err)
	if status == fiber.StatusInternalServerError {
		return utils.StandardInternalError(c, err)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (r *InvitesController) createInvite(c *fiber.Ctx, config *config.Config) error {
	body := new(createInviteConfig)
	if ok, err := utils.StandardBodyParse(c, body); !ok {
		return err
	}

	userId, _ := utils.Identity(c)
	res, err := r.Engine.Create(c.UserContext(), userId, int64(body.ProjectId), body.Email, body.Role)
	if err != nil {
		return engineError(c, err)
	}

	message := "Invitation created"
	if !res.CreatedNew {
		message = "Invitation already sent"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    message,
		"inviteLink": config.InviteLink(res.Invitation.Token),
		"invitation": res.Invitation,
	})
}

func (r *InvitesController) inspectInvite(c *fiber.Ctx) error {
	details, err := r.Engine.Inspect(c.UserContext(), c.Params("token"))
	if err != nil {
		return engineError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(details)
}

func (r *InvitesController) acceptInvite(c *fiber.Ctx) error {
	userId, email := utils.Identity(c)

	res, err := r.Engine.Accept(c.UserContext(), c.Params("token"), userId, email)
	if err != nil {
		return engineError(c, err)
	}

	message := "Invitation accepted"
	if res.AlreadyMember {
		message = "Already a member of the project"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   message,
		"projectId": res.ProjectId,
	})
}
