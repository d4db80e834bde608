package models

import (
	"context"

	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// CreateTables creates the userdata tables if they are missing. The userdata
// schema itself must already exist.
func CreateTables(ctx context.Context, db bun.IDB) error {
	tables := []interface{}{
		(*userdata.User)(nil),
		(*userdata.Project)(nil),
		(*userdata.Membership)(nil),
		(*userdata.Invitation)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	// sqlite cannot qualify the indexed table with a schema.
	if db.Dialect().Name() != dialect.PG {
		return nil
	}

	_, err := db.NewCreateIndex().
		Model((*userdata.Invitation)(nil)).
		Index("invitations_project_email_idx").
		IfNotExists().
		Column("project_id", "email").
		Exec(ctx)
	return err
}
