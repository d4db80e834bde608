package userdata

import (
	"time"

	"github.com/uptrace/bun"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationExpired  InvitationStatus = "EXPIRED"
	InvitationAccepted InvitationStatus = "ACCEPTED"
)

// Invitation rows are never deleted. Expiry is derived from ExpiresAt at read
// time and never written back.
type Invitation struct {
	bun.BaseModel `bun:"userdata.invitations"`

	Token      string    `bun:",pk" json:"token"`
	ProjectId  int64     `bun:",notnull" json:"projectId"`
	Email      string    `bun:",notnull" json:"email"`
	Role       Role      `bun:",notnull" json:"role"`
	CreatedBy  int64     `bun:",notnull" json:"createdBy"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	ExpiresAt  time.Time `bun:",notnull" json:"expiresAt"`
	Accepted   bool      `bun:",notnull,default:false" json:"accepted"`
	AcceptedAt time.Time `bun:",nullzero" json:"acceptedAt,omitempty"`
}

func (i *Invitation) Expired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// Status reports the lifecycle state at now. An expired invitation reports
// EXPIRED even if it was accepted before it lapsed.
func (i *Invitation) Status(now time.Time) InvitationStatus {
	switch {
	case i.Expired(now):
		return InvitationExpired
	case i.Accepted:
		return InvitationAccepted
	default:
		return InvitationPending
	}
}

// Live reports whether the invitation can still be accepted.
func (i *Invitation) Live(now time.Time) bool {
	return i.Status(now) == InvitationPending
}
