package controllers

import (
	"strconv"
	"time"

	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/canvasly/canvasly-server/repos"
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

type ProjectsController struct {
	fx.In

	Repo     *repos.ProjectRepo
	UserRepo *repos.UserRepo
}

func RegisterProjectsController(r *utils.Router, c ProjectsController) {
	group := r.Group("/projects", utils.Protected(standardRoute))

	group.Post("/", c.createProject)
	group.Get("/", c.listProjects)
	group.Get("/:id", c.getProject)
}

type createProjectConfig struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=1024"`
}

func (r *ProjectsController) createProject(c *fiber.Ctx) error {
	config := new(createProjectConfig)
	if ok, err := utils.StandardBodyParse(c, config); !ok {
		return err
	}

	userId, _ := utils.Identity(c)
	if _, err := r.UserRepo.GetUser(c.UserContext(), userId); err != nil {
		if repos.IsNoRows(err) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unknown user",
			})
		}
		return utils.StandardInternalError(c, err)
	}

	project := &userdata.Project{
		Name:        config.Name,
		Description: config.Description,
		OwnerId:     userId,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.Repo.AddProjectTx(c.UserContext(), project); err != nil {
		return utils.StandardInternalError(c, err)
	}

	log.Info().Int64("project", project.Id).Int64("owner", userId).Msg("Project created")

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Project created!",
		"project": project,
	})
}

func (r *ProjectsController) listProjects(c *fiber.Ctx) error {
	userId, _ := utils.Identity(c)

	projects, err := r.Repo.ListUserProjects(c.UserContext(), userId)
	if err != nil {
		return utils.StandardInternalError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(projects)
}

func (r *ProjectsController) getProject(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return utils.StandardCouldNotParse(c)
	}

	userId, _ := utils.Identity(c)
	project, err := r.Repo.GetUserProject(c.UserContext(), id, userId)
	if err != nil {
		if repos.IsNoRows(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Project not found",
			})
		}
		return utils.StandardInternalError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(project)
}
