package invitations_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/canvasly/canvasly-server/general-service/invitations"
	"github.com/canvasly/canvasly-server/models/userdata"
	"github.com/canvasly/canvasly-server/repos"
	"github.com/canvasly/canvasly-server/repos/repostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	db          *bun.DB
	engine      *invitations.Engine
	clock       *clock
	users       *repos.UserRepo
	projects    *repos.ProjectRepo
	memberships *repos.MembershipRepo
	invitations *repos.InvitationRepo
}

func newHarness(t *testing.T) *harness {
	db := repostest.NewDB(t)
	h := &harness{
		db:          db,
		clock:       &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		users:       repos.NewUserRepo(db),
		projects:    repos.NewProjectRepo(db),
		memberships: repos.NewMembershipRepo(db),
		invitations: repos.NewInvitationRepo(db),
	}
	h.engine = invitations.NewEngine(h.projects, h.memberships, h.invitations, 0).WithClock(h.clock.Now)
	return h
}

func (h *harness) user(t *testing.T, name string) *userdata.User {
	u := &userdata.User{Name: name, Email: name + "@x.com"}
	require.NoError(t, h.users.AddUser(context.Background(), u))
	return u
}

func (h *harness) project(t *testing.T, owner *userdata.User, name string) *userdata.Project {
	p := &userdata.Project{Name: name, OwnerId: owner.Id, CreatedAt: h.clock.Now()}
	require.NoError(t, h.projects.AddProjectTx(context.Background(), p))
	return p
}

func TestCreateIssuesTokenWithDefaultTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	p1 := h.project(t, alice, "P1")

	res, err := h.engine.Create(ctx, alice.Id, p1.Id, "Bob@x.com", "")
	require.NoError(t, err)
	assert.True(t, res.CreatedNew)

	invite := res.Invitation
	assert.Len(t, invite.Token, 2*invitations.TokenBytes)
	assert.Equal(t, "bob@x.com", invite.Email)
	assert.Equal(t, userdata.RoleEditor, invite.Role)
	assert.Equal(t, alice.Id, invite.CreatedBy)
	assert.False(t, invite.Accepted)
	assert.Equal(t, h.clock.Now().Add(7*24*time.Hour), invite.ExpiresAt)
}

func TestCreateReturnsLiveInvitation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	p1 := h.project(t, alice, "P1")

	first, err := h.engine.Create(ctx, alice.Id, p1.Id, "bob@x.com", "VIEWER")
	require.NoError(t, err)

	second, err := h.engine.Create(ctx, alice.Id, p1.Id, "bob@x.com", "EDITOR")
	require.NoError(t, err)
	assert.False(t, second.CreatedNew)
	assert.Equal(t, first.Invitation.Token, second.Invitation.Token)
	assert.Equal(t, userdata.RoleViewer, second.Invitation.Role)

	h.clock.Advance(8 * 24 * time.Hour)
	third, err := h.engine.Create(ctx, alice.Id, p1.Id, "bob@x.com", "EDITOR")
	require.NoError(t, err)
	assert.True(t, third.CreatedNew)
	assert.NotEqual(t, first.Invitation.Token, third.Invitation.Token)
}

func TestCreateRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	carol := h.user(t, "carol")
	p1 := h.project(t, alice, "P1")

	_, err := h.engine.Create(ctx, 0, p1.Id, "dave@x.com", "")
	assert.ErrorIs(t, err, invitations.ErrUnauthenticated)

	_, err = h.engine.Create(ctx, alice.Id, p1.Id, "dave@x.com", "ADMIN")
	assert.ErrorIs(t, err, invitations.ErrInvalidRole)

	_, err = h.engine.Create(ctx, alice.Id, 999, "dave@x.com", "")
	assert.ErrorIs(t, err, invitations.ErrNotFound)

	_, err = h.engine.Create(ctx, carol.Id, p1.Id, "dave@x.com", "")
	assert.ErrorIs(t, err, invitations.ErrForbidden)

	// Bob joins as editor and still cannot invite.
	res, err := h.engine.Create(ctx, alice.Id, p1.Id, bob.Email, "EDITOR")
	require.NoError(t, err)
	_, err = h.engine.Accept(ctx, res.Invitation.Token, bob.Id, bob.Email)
	require.NoError(t, err)

	_, err = h.engine.Create(ctx, bob.Id, p1.Id, "dave@x.com", "")
	assert.ErrorIs(t, err, invitations.ErrForbidden)

	_, err = h.engine.Create(ctx, alice.Id, p1.Id, "BOB@x.com", "")
	assert.ErrorIs(t, err, invitations.ErrAlreadyMember)
}

func TestCreateAllowsOwnerMembers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	p1 := h.project(t, alice, "P1")

	res, err := h.engine.Create(ctx, alice.Id, p1.Id, bob.Email, "OWNER")
	require.NoError(t, err)
	_, err = h.engine.Accept(ctx, res.Invitation.Token, bob.Id, bob.Email)
	require.NoError(t, err)

	res, err = h.engine.Create(ctx, bob.Id, p1.Id, "dave@x.com", "viewer")
	require.NoError(t, err)
	assert.Equal(t, userdata.RoleViewer, res.Invitation.Role)
}

func TestInspect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	p1 := h.project(t, alice, "P1")

	res, err := h.engine.Create(ctx, alice.Id, p1.Id, bob.Email, "VIEWER")
	require.NoError(t, err)

	details, err := h.engine.Inspect(ctx, res.Invitation.Token)
	require.NoError(t, err)
	assert.Equal(t, p1.Id, details.ProjectId)
	assert.Equal(t, "P1", details.ProjectName)
	assert.Equal(t, bob.Email, details.Email)
	assert.Equal(t, userdata.RoleViewer, details.Role)
	assert.True(t, res.Invitation.ExpiresAt.Equal(details.ExpiresAt))

	_, err = h.engine.Inspect(ctx, "nope")
	assert.ErrorIs(t, err, invitations.ErrNotFound)

	_, err = h.engine.Accept(ctx, res.Invitation.Token, bob.Id, bob.Email)
	require.NoError(t, err)
	_, err = h.engine.Inspect(ctx, res.Invitation.Token)
	assert.ErrorIs(t, err, invitations.ErrAlreadyAccepted)

	h.clock.Advance(8 * 24 * time.Hour)
	_, err = h.engine.Inspect(ctx, res.Invitation.Token)
	assert.ErrorIs(t, err, invitations.ErrExpired)
}

func TestAcceptCreatesMembership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	p1 := h.project(t, alice, "P1")

	res, err := h.engine.Create(ctx, alice.Id, p1.Id, bob.Email, "VIEWER")
	require.NoError(t, err)

	accepted, err := h.engine.Accept(ctx, res.Invitation.Token, bob.Id, "BOB@x.com")
	require.NoError(t, err)
	assert.Equal(t, p1.Id, accepted.ProjectId)
	assert.False(t, accepted.AlreadyMember)

	membership, err := h.memberships.GetMembership(ctx, bob.Id, p1.Id)
	require.NoError(t, err)
	assert.Equal(t, userdata.RoleViewer, membership.Role)

	invite, err := h.invitations.GetInvitation(ctx, res.Invitation.Token)
	require.NoError(t, err)
	assert.True(t, invite.Accepted)

	_, err = h.engine.Accept(ctx, res.Invitation.Token, bob.Id, bob.Email)
	assert.ErrorIs(t, err, invitations.ErrAlreadyAccepted)

	count, err := h.memberships.CountMembers(ctx, p1.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAcceptRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	carol := h.user(t, "carol")
	p1 := h.project(t, alice, "P1")

	res, err := h.engine.Create(ctx, alice.Id, p1.Id, bob.Email, "")
	require.NoError(t, err)
	token := res.Invitation.Token

	_, err = h.engine.Accept(ctx, token, 0, "")
	assert.ErrorIs(t, err, invitations.ErrUnauthenticated)

	_, err = h.engine.Accept(ctx, "missing", bob.Id, bob.Email)
	assert.ErrorIs(t, err, invitations.ErrNotFound)

	_, err = h.engine.Accept(ctx, token, carol.Id, carol.Email)
	assert.ErrorIs(t, err, invitations.ErrIdentityMismatch)

	member, err := h.memberships.IsMember(ctx, carol.Id, p1.Id)
	require.NoError(t, err)
	assert.False(t, member)

	h.clock.Advance(7*24*time.Hour + time.Second)
	_, err = h.engine.Accept(ctx, token, bob.Id, bob.Email)
	assert.ErrorIs(t, err, invitations.ErrExpired)

	invite, err := h.invitations.GetInvitation(ctx, token)
	require.NoError(t, err)
	assert.False(t, invite.Accepted)
}

func TestAcceptWhenAlreadyMember(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	p1 := h.project(t, alice, "P1")

	first, err := h.engine.Create(ctx, alice.Id, p1.Id, bob.Email, "VIEWER")
	require.NoError(t, err)

	// A second pending invitation issued directly, bypassing the member check.
	second := &userdata.Invitation{
		Token:     "second-token",
		ProjectId: p1.Id,
		Email:     bob.Email,
		Role:      userdata.RoleOwner,
		CreatedBy: alice.Id,
		CreatedAt: h.clock.Now(),
		ExpiresAt: h.clock.Now().Add(time.Hour),
	}
	require.NoError(t, h.invitations.AddInvitation(ctx, second))

	_, err = h.engine.Accept(ctx, first.Invitation.Token, bob.Id, bob.Email)
	require.NoError(t, err)

	res, err := h.engine.Accept(ctx, second.Token, bob.Id, bob.Email)
	require.NoError(t, err)
	assert.True(t, res.AlreadyMember)
	assert.Equal(t, p1.Id, res.ProjectId)

	membership, err := h.memberships.GetMembership(ctx, bob.Id, p1.Id)
	require.NoError(t, err)
	assert.Equal(t, userdata.RoleViewer, membership.Role)

	invite, err := h.invitations.GetInvitation(ctx, second.Token)
	require.NoError(t, err)
	assert.True(t, invite.Accepted)
}

func TestConcurrentAcceptCreatesOneMembership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	p1 := h.project(t, alice, "P1")

	res, err := h.engine.Create(ctx, alice.Id, p1.Id, bob.Email, "")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*invitations.AcceptResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.engine.Accept(ctx, res.Invitation.Token, bob.Id, bob.Email)
		}(i)
	}
	wg.Wait()

	successes := 0
	for i := range errs {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], invitations.ErrAlreadyAccepted)
			continue
		}
		successes++
		assert.Equal(t, p1.Id, results[i].ProjectId)
	}
	assert.GreaterOrEqual(t, successes, 1)

	count, err := h.memberships.CountMembers(ctx, p1.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStatusCode(t *testing.T) {
	cases := map[error]int{
		nil:                              200,
		invitations.ErrUnauthenticated:   401,
		invitations.ErrForbidden:         403,
		invitations.ErrIdentityMismatch:  403,
		invitations.ErrNotFound:          404,
		invitations.ErrAlreadyAccepted:   409,
		invitations.ErrAlreadyMember:     409,
		invitations.ErrExpired:           410,
		invitations.ErrInvalidRole:       400,
		assert.AnError:                   500,
	}

	for err, status := range cases {
		assert.Equal(t, status, invitations.StatusCode(err), "%v", err)
	}
}
