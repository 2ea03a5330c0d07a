// Package authz decides whether a member's role permits an action. Decisions
// are pure functions of their arguments; callers resolve roles first.
package authz

import (
	"context"
	"fmt"

	"github.com/mikepea/studyhub/pkg/studyhub/apierr"
	"github.com/mikepea/studyhub/pkg/studyhub/models"
)

// Action is a group-scoped operation subject to role checks
type Action int

const (
	ActionViewGroup Action = iota
	ActionUpdateGroup
	ActionDeleteGroup
	ActionCreateSubject
	ActionDeleteSubject
	ActionCreateSession
	ActionUpdateSession
	ActionDeleteSession
	ActionUpdateRole
)

var actionNames = map[Action]string{
	ActionViewGroup:     "view_group",
	ActionUpdateGroup:   "update_group",
	ActionDeleteGroup:   "delete_group",
	ActionCreateSubject: "create_subject",
	ActionDeleteSubject: "delete_subject",
	ActionCreateSession: "create_session",
	ActionUpdateSession: "update_session",
	ActionDeleteSession: "delete_session",
	ActionUpdateRole:    "update_role",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

const (
	MsgManagerRequired   = "You must have one of these roles: [Admin Creator]."
	MsgTransferOwnership = "Only the Creator can transfer ownership."
	MsgDemoteAdmin       = "Only the Creator can demote an Admin."
	MsgCreatorTarget     = "Only the Creator can change the Creator's role."
	MsgMustTransferFirst = "Must transfer ownership first."
)

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an allowed decision and a 403 otherwise
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apierr.Forbidden(d.Reason)
}

// minimumRole is the least privileged role allowed to perform each action
var minimumRole = map[Action]models.Role{
	ActionViewGroup:     models.RoleMember,
	ActionUpdateGroup:   models.RoleAdmin,
	ActionDeleteGroup:   models.RoleAdmin,
	ActionCreateSubject: models.RoleAdmin,
	ActionDeleteSubject: models.RoleAdmin,
	ActionCreateSession: models.RoleAdmin,
	ActionUpdateSession: models.RoleAdmin,
	ActionDeleteSession: models.RoleAdmin,
	ActionUpdateRole:    models.RoleAdmin,
}

// Authorize decides whether role may perform action. Unknown roles and
// actions are denied.
func Authorize(role models.Role, action Action) Decision {
	required, ok := minimumRole[action]
	if !ok || !role.Valid() {
		return deny(MsgManagerRequired)
	}
	if !role.AtLeast(required) {
		if required == models.RoleMember {
			return deny("You must be a group member to perform this action.")
		}
		return deny(MsgManagerRequired)
	}
	return allow
}

// roleUpdates is indexed [acting][target][requested].
var roleUpdates = [3][3][3]Decision{
	models.RoleMember: {
		models.RoleMember:  {deny(MsgManagerRequired), deny(MsgManagerRequired), deny(MsgManagerRequired)},
		models.RoleAdmin:   {deny(MsgManagerRequired), deny(MsgManagerRequired), deny(MsgManagerRequired)},
		models.RoleCreator: {deny(MsgManagerRequired), deny(MsgManagerRequired), deny(MsgManagerRequired)},
	},
	models.RoleAdmin: {
		models.RoleMember:  {allow, allow, deny(MsgTransferOwnership)},
		models.RoleAdmin:   {deny(MsgDemoteAdmin), allow, deny(MsgTransferOwnership)},
		models.RoleCreator: {deny(MsgCreatorTarget), deny(MsgCreatorTarget), deny(MsgTransferOwnership)},
	},
	models.RoleCreator: {
		models.RoleMember:  {allow, allow, allow},
		models.RoleAdmin:   {allow, allow, allow},
		models.RoleCreator: {allow, allow, allow},
	},
}

// AuthorizeRoleUpdate decides whether a member with role acting may set the
// role of a member currently holding target to requested.
func AuthorizeRoleUpdate(acting, target, requested models.Role) Decision {
	if !acting.Valid() || !target.Valid() || !requested.Valid() {
		return deny(MsgManagerRequired)
	}
	return roleUpdates[acting][target][requested]
}

// AuthorizeLeave decides whether a member holding role may leave the group.
// The Creator must hand over ownership first so the group keeps one Creator.
func AuthorizeLeave(role models.Role) Decision {
	if role == models.RoleCreator {
		return deny(MsgMustTransferFirst)
	}
	return allow
}

// MemberResolver resolves a caller's membership in a group
type MemberResolver interface {
	RequireMember(ctx context.Context, userID, groupID uint) (*models.Membership, error)
}

// Require resolves the caller's membership and authorizes action against it
func Require(ctx context.Context, members MemberResolver, userID, groupID uint, action Action) (*models.Membership, error) {
	m, err := members.RequireMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(m.Role, action).Err(); err != nil {
		return nil, err
	}
	return m, nil
}
