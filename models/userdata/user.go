package userdata

import "github.com/uptrace/bun"

// User mirrors the identity provider's account row. The core only reads it.
type User struct {
	bun.BaseModel `bun:"userdata.users"`

	Id    int64  `bun:",pk,autoincrement" json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `bun:",unique,notnull" json:"email,omitempty"`
}
