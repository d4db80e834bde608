package repos

import (
	"context"

	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/uptrace/bun"
)

type MembershipRepo struct {
	db *bun.DB
}

func NewMembershipRepo(db *bun.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (c *MembershipRepo) GetMembership(ctx context.Context, userId, projectId int64) (*userdata.Membership, error) {
	return c.GetMembershipTx(ctx, userId, projectId, c.db)
}

func (c *MembershipRepo) GetMembershipTx(ctx context.Context, userId, projectId int64, db bun.IDB) (*userdata.Membership, error) {
	membership := new(userdata.Membership)
	err := db.NewSelect().
		Model(membership).
		Where(`"membership"."user_id" = ?`, userId).
		Where(`"membership"."project_id" = ?`, projectId).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return membership, nil
}

func (c *MembershipRepo) IsMember(ctx context.Context, userId, projectId int64) (bool, error) {
	return c.db.NewSelect().
		Model((*userdata.Membership)(nil)).
		Where(`"membership"."user_id" = ?`, userId).
		Where(`"membership"."project_id" = ?`, projectId).
		Exists(ctx)
}

// IsMemberByEmail reports whether the account registered under email belongs to the project.
func (c *MembershipRepo) IsMemberByEmail(ctx context.Context, email string, projectId int64) (bool, error) {
	return c.db.NewSelect().
		Model((*userdata.Membership)(nil)).
		Join(`JOIN userdata.users AS u ON u.id = "membership"."user_id"`).
		Where(`lower(u.email) = lower(?)`, email).
		Where(`"membership"."project_id" = ?`, projectId).
		Exists(ctx)
}

func (c *MembershipRepo) AddMembershipTx(ctx context.Context, membership *userdata.Membership, db bun.IDB) error {
	_, err := db.NewInsert().Model(membership).Exec(ctx)
	return err
}

func (c *MembershipRepo) CountMembers(ctx context.Context, projectId int64) (int, error) {
	return c.db.NewSelect().
		Model((*userdata.Membership)(nil)).
		Where(`"membership"."project_id" = ?`, projectId).
		Count(ctx)
}
