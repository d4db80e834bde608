package userdata

import (
	"time"

	"github.com/uptrace/bun"
)

type Project struct {
	bun.BaseModel `bun:"userdata.projects"`

	Id          int64        `bun:",pk,autoincrement" json:"id"`
	Name        string       `bun:",notnull" json:"name"`
	Description string       `json:"description"`
	OwnerId     int64        `bun:",notnull" json:"ownerId"`
	Owner       *User        `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	CreatedAt   time.Time    `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	Members     []Membership `bun:"rel:has-many,join:id=project_id" json:"members,omitempty"`
}
