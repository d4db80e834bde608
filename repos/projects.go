package repos

import (
	"context"
	"database/sql"

	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/uptrace/bun"
)

type ProjectRepo struct {
	db *bun.DB
}

func NewProjectRepo(db *bun.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// AddProjectTx inserts the project and the owner's OWNER membership in one
// transaction. The generated id is written back to project.
func (c *ProjectRepo) AddProjectTx(ctx context.Context, project *userdata.Project) error {
	return c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(project).Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(&userdata.Membership{
			UserId:    project.OwnerId,
			ProjectId: project.Id,
			Role:      userdata.RoleOwner,
		}).Exec(ctx)
		return err
	})
}

func (c *ProjectRepo) GetProject(ctx context.Context, id int64) (*userdata.Project, error) {
	return c.GetProjectTx(ctx, id, c.db)
}

func (c *ProjectRepo) GetProjectTx(ctx context.Context, id int64, db bun.IDB) (*userdata.Project, error) {
	project := new(userdata.Project)
	err := db.NewSelect().Model(project).Where(`"project"."id" = ?`, id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return project, nil
}

// GetUserProject returns the project with owner and members when userId is a member.
func (c *ProjectRepo) GetUserProject(ctx context.Context, id, userId int64) (*userdata.Project, error) {
	project := new(userdata.Project)
	err := c.db.NewSelect().
		Model(project).
		Relation("Owner").
		Relation("Members.User").
		Where(`"project"."id" = ?`, id).
		Where(`EXISTS (SELECT 1 FROM userdata.memberships AS m WHERE m.project_id = "project"."id" AND m.user_id = ?)`, userId).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return project, nil
}

func (c *ProjectRepo) ListUserProjects(ctx context.Context, userId int64) ([]userdata.Project, error) {
	projects := make([]userdata.Project, 0)
	err := c.db.NewSelect().
		Model(&projects).
		Relation("Owner").
		Relation("Members.User").
		Where(`EXISTS (SELECT 1 FROM userdata.memberships AS m WHERE m.project_id = "project"."id" AND m.user_id = ?)`, userId).
		OrderExpr(`"project"."created_at" DESC, "project"."id" DESC`).
		Scan(ctx)
	return projects, err
}
