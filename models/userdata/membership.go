package userdata

import "github.com/uptrace/bun"

type Membership struct {
	bun.BaseModel `bun:"userdata.memberships"`

	UserId    int64 `bun:",pk" json:"userId"`
	User      *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	ProjectId int64 `bun:",pk" json:"projectId"`
	Role      Role  `bun:",notnull" json:"role"`
}
