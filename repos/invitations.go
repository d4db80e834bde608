package repos

import (
	"context"
	"database/sql"
	"time"

	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/uptrace/bun"
)

type InvitationRepo struct {
	db *bun.DB
}

func NewInvitationRepo(db *bun.DB) *InvitationRepo {
	return &InvitationRepo{db: db}
}

func (c *InvitationRepo) AddInvitation(ctx context.Context, invitation *userdata.Invitation) error {
	_, err := c.db.NewInsert().Model(invitation).Exec(ctx)
	return err
}

func (c *InvitationRepo) GetInvitation(ctx context.Context, token string) (*userdata.Invitation, error) {
	return c.GetInvitationTx(ctx, token, c.db)
}

func (c *InvitationRepo) GetInvitationTx(ctx context.Context, token string, db bun.IDB) (*userdata.Invitation, error) {
	invite := new(userdata.Invitation)
	err := db.NewSelect().Model(invite).Where(`"invitation"."token" = ?`, token).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return invite, nil
}

// FindLiveInvitation returns the newest unaccepted, unexpired invitation for
// the pair, or nil when there is none.
func (c *InvitationRepo) FindLiveInvitation(ctx context.Context, projectId int64, email string, now time.Time) (*userdata.Invitation, error) {
	invites := make([]userdata.Invitation, 0)
	err := c.db.NewSelect().
		Model(&invites).
		Where(`"invitation"."project_id" = ?`, projectId).
		Where(`"invitation"."email" = ?`, email).
		Where(`"invitation"."accepted" = ?`, false).
		OrderExpr(`"invitation"."created_at" DESC`).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	for i := range invites {
		if invites[i].Live(now) {
			return &invites[i], nil
		}
	}

	return nil, nil
}

// MarkAcceptedTx flips accepted from false to true. It reports false when
// another caller got there first.
func (c *InvitationRepo) MarkAcceptedTx(ctx context.Context, token string, at time.Time, db bun.IDB) (bool, error) {
	res, err := db.NewUpdate().
		Model((*userdata.Invitation)(nil)).
		Set("accepted = ?", true).
		Set("accepted_at = ?", at).
		Where("token = ?", token).
		Where("accepted = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (c *InvitationRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
	return c.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}
