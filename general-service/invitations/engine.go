// Package invitations turns single-use, expiring tokens into project
// memberships.
package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/canvasly/canvasly-server/repos"
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

const (
	DefaultTTL = 7 * 24 * time.Hour
	// TokenBytes of randomness back every invitation token.
	TokenBytes = 32
)

var errLostRace = errors.New("invitation accepted concurrently")

// ProjectStore is the slice of repos.ProjectRepo the engine reads.
type ProjectStore interface {
	GetProject(ctx context.Context, id int64) (*userdata.Project, error)
	GetProjectTx(ctx context.Context, id int64, db bun.IDB) (*userdata.Project, error)
}

type MembershipStore interface {
	GetMembership(ctx context.Context, userId, projectId int64) (*userdata.Membership, error)
	GetMembershipTx(ctx context.Context, userId, projectId int64, db bun.IDB) (*userdata.Membership, error)
	IsMember(ctx context.Context, userId, projectId int64) (bool, error)
	IsMemberByEmail(ctx context.Context, email string, projectId int64) (bool, error)
	AddMembershipTx(ctx context.Context, membership *userdata.Membership, db bun.IDB) error
}

type InvitationStore interface {
	AddInvitation(ctx context.Context, invitation *userdata.Invitation) error
	GetInvitation(ctx context.Context, token string) (*userdata.Invitation, error)
	GetInvitationTx(ctx context.Context, token string, db bun.IDB) (*userdata.Invitation, error)
	FindLiveInvitation(ctx context.Context, projectId int64, email string, now time.Time) (*userdata.Invitation, error)
	MarkAcceptedTx(ctx context.Context, token string, at time.Time, db bun.IDB) (bool, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error
}

type Engine struct {
	projects    ProjectStore
	memberships MembershipStore
	invitations InvitationStore
	ttl         time.Duration
	now         func() time.Time
}

type CreateResult struct {
	Invitation *userdata.Invitation
	CreatedNew bool
}

type Details struct {
	ProjectId   int64         `json:"projectId"`
	ProjectName string        `json:"projectName"`
	Email       string        `json:"email"`
	Role        userdata.Role `json:"role"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

type AcceptResult struct {
	ProjectId int64
	// AlreadyMember is set when the caller belonged to the project before
	// accepting and no membership was created.
	AlreadyMember bool
}

func NewEngine(projects ProjectStore, memberships MembershipStore, invitations InvitationStore, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Engine{
		projects:    projects,
		memberships: memberships,
		invitations: invitations,
		ttl:         ttl,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Create issues an invitation for email on projectId, or returns the live one
// already issued for that pair.
func (e *Engine) Create(ctx context.Context, inviterId, projectId int64, email, rawRole string) (*CreateResult, error) {
	if inviterId <= 0 {
		return nil, ErrUnauthenticated
	}

	role, ok := userdata.ParseRole(rawRole)
	if !ok {
		return nil, ErrInvalidRole
	}
	email = normalizeEmail(email)

	project, err := e.projects.GetProject(ctx, projectId)
	if err != nil {
		if repos.IsNoRows(err) {
			return nil, fmt.Errorf("project %d: %w", projectId, ErrNotFound)
		}
		return nil, err
	}

	allowed, err := e.canInvite(ctx, inviterId, project)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	member, err := e.memberships.IsMemberByEmail(ctx, email, projectId)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	now := e.now()
	live, err := e.invitations.FindLiveInvitation(ctx, projectId, email, now)
	if err != nil {
		return nil, err
	}
	if live != nil {
		return &CreateResult{Invitation: live, CreatedNew: false}, nil
	}

	invite := &userdata.Invitation{
		Token:     utils.GenerateToken(TokenBytes),
		ProjectId: projectId,
		Email:     email,
		Role:      role,
		CreatedBy: inviterId,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}
	if err := e.invitations.AddInvitation(ctx, invite); err != nil {
		return nil, err
	}

	log.Info().
		Str("invite", tokenPrefix(invite.Token)).
		Int64("project", projectId).
		Str("role", string(role)).
		Time("expires_at", invite.ExpiresAt).
		Msg("Invitation created")

	return &CreateResult{Invitation: invite, CreatedNew: true}, nil
}

func (e *Engine) canInvite(ctx context.Context, userId int64, project *userdata.Project) (bool, error) {
	if project.OwnerId == userId {
		return true, nil
	}

	membership, err := e.memberships.GetMembership(ctx, userId, project.Id)
	if err != nil {
		if repos.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}

	return membership.Role == userdata.RoleOwner, nil
}

// Inspect describes a pending invitation.
func (e *Engine) Inspect(ctx context.Context, token string) (*Details, error) {
	invite, err := e.invitations.GetInvitation(ctx, token)
	if err != nil {
		if repos.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := checkPending(invite, e.now()); err != nil {
		return nil, err
	}

	project, err := e.projects.GetProject(ctx, invite.ProjectId)
	if err != nil {
		if repos.IsNoRows(err) {
			return nil, fmt.Errorf("project %d: %w", invite.ProjectId, ErrNotFound)
		}
		return nil, err
	}

	return &Details{
		ProjectId:   invite.ProjectId,
		ProjectName: project.Name,
		Email:       invite.Email,
		Role:        invite.Role,
		ExpiresAt:   invite.ExpiresAt,
	}, nil
}

// Accept turns the invitation into a membership for the caller. The flag flip
// and the membership insert commit together; a transient conflict is retried
// once.
func (e *Engine) Accept(ctx context.Context, token string, userId int64, email string) (*AcceptResult, error) {
	if userId <= 0 {
		return nil, ErrUnauthenticated
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var res *AcceptResult
		res, err = e.accept(ctx, token, userId, email)
		if !isTransient(err) {
			return res, err
		}

		log.Warn().Err(err).Str("invite", tokenPrefix(token)).Int("attempt", attempt+1).Msg("Accept conflicted")
	}

	return nil, fmt.Errorf("accept invitation: %w", err)
}

func (e *Engine) accept(ctx context.Context, token string, userId int64, email string) (*AcceptResult, error) {
	result := &AcceptResult{}

	err := e.invitations.RunInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		now := e.now()

		invite, err := e.invitations.GetInvitationTx(ctx, token, tx)
		if err != nil {
			if repos.IsNoRows(err) {
				return ErrNotFound
			}
			return err
		}

		if err := checkPending(invite, now); err != nil {
			return err
		}

		if !strings.EqualFold(invite.Email, normalizeEmail(email)) {
			return ErrIdentityMismatch
		}
		result.ProjectId = invite.ProjectId

		_, err = e.memberships.GetMembershipTx(ctx, userId, invite.ProjectId, tx)
		switch {
		case err == nil:
			// Repair: mark the invitation used without a second membership.
			result.AlreadyMember = true
			_, err = e.invitations.MarkAcceptedTx(ctx, token, now, tx)
			return err
		case !repos.IsNoRows(err):
			return err
		}

		if _, err := e.projects.GetProjectTx(ctx, invite.ProjectId, tx); err != nil {
			if repos.IsNoRows(err) {
				return fmt.Errorf("project %d: %w", invite.ProjectId, ErrNotFound)
			}
			return err
		}

		won, err := e.invitations.MarkAcceptedTx(ctx, token, now, tx)
		if err != nil {
			return err
		}
		if !won {
			return errLostRace
		}

		return e.memberships.AddMembershipTx(ctx, &userdata.Membership{
			UserId:    userId,
			ProjectId: invite.ProjectId,
			Role:      invite.Role,
		}, tx)
	})

	if errors.Is(err, errLostRace) {
		// The winner commits its membership with the flag, so the caller is
		// either a member by now or someone else took the invitation.
		member, mErr := e.memberships.IsMember(ctx, userId, result.ProjectId)
		if mErr != nil {
			return nil, mErr
		}
		if member {
			return result, nil
		}
		return nil, ErrAlreadyAccepted
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("invite", tokenPrefix(token)).
		Int64("project", result.ProjectId).
		Int64("user", userId).
		Bool("already_member", result.AlreadyMember).
		Msg("Invitation accepted")

	return result, nil
}

func checkPending(invite *userdata.Invitation, now time.Time) error {
	switch invite.Status(now) {
	case userdata.InvitationExpired:
		return ErrExpired
	case userdata.InvitationAccepted:
		return ErrAlreadyAccepted
	default:
		return nil
	}
}

func isTransient(err error) bool {
	return repos.IsUniqueViolation(err) || repos.IsSerializationFailure(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
