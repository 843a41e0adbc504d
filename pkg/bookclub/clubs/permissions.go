package clubs

import (
	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
)

// Role rules, checked in order. The lattice is fixed: member < admin < owner.
//
//  1. Nobody changes or removes the owner's membership; only the dedicated
//     ownership transfer touches it.
//  2. Admins may act on members (remove them) but never on another admin.
//  3. Only the owner grants the admin role; admins cannot create admins.
//  4. The owner may act on any non-owner target. Granting the owner role
//     through the generic path is always refused.

// CanChangeRole reports whether acting may set target's role to newRole.
// Returns nil or a Forbidden error describing the violated rule.
func CanChangeRole(acting, target, newRole models.ClubRole) error {
	if target == models.ClubRoleOwner {
		return apperr.Forbiddenf("cannot change the role of the club owner")
	}
	if newRole == models.ClubRoleOwner {
		return apperr.Forbiddenf("ownership can only move through an ownership transfer")
	}
	if acting == models.ClubRoleMember {
		return apperr.Forbiddenf("members cannot manage roles")
	}
	if acting == models.ClubRoleAdmin && target == models.ClubRoleAdmin {
		return apperr.Forbiddenf("admins cannot change other admins' roles")
	}
	if newRole == models.ClubRoleAdmin && acting != models.ClubRoleOwner {
		return apperr.Forbiddenf("only the owner can promote members to admin")
	}
	return nil
}

// CanRemoveMember reports whether acting may remove a membership whose
// current role is target.
func CanRemoveMember(acting, target models.ClubRole) error {
	if target == models.ClubRoleOwner {
		return apperr.Forbiddenf("cannot remove the club owner")
	}
	if acting == models.ClubRoleMember {
		return apperr.Forbiddenf("members cannot remove other members")
	}
	if acting == models.ClubRoleAdmin && target == models.ClubRoleAdmin {
		return apperr.Forbiddenf("admins cannot remove other admins")
	}
	return nil
}

// CanManageRequests reports whether a role may list, approve or reject
// join requests. Requests carry no role of their own, so no owner-level
// protection applies to them.
func CanManageRequests(role models.ClubRole) bool {
	return role == models.ClubRoleOwner || role == models.ClubRoleAdmin
}
