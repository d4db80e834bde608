package repos

import (
	"context"

	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/uptrace/bun"
)

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (c *UserRepo) GetUser(ctx context.Context, id int64) (*userdata.User, error) {
	user := new(userdata.User)
	err := c.db.NewSelect().Model(user).Where(`"user"."id" = ?`, id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (c *UserRepo) AddUser(ctx context.Context, user *userdata.User) error {
	_, err := c.db.NewInsert().Model(user).Exec(ctx)
	return err
}
