package rbac

import (
	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/models"
)

// Roles a user can hold relative to a deal
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
	RoleNone   = ""
)

// Permission constants
const (
	PermViewDeal   = "view_deal"
	PermViewEscrow = "view_escrow"
)

// RolePermissions defines what each role can do with a deal.
var RolePermissions = map[string][]string{
	RoleBuyer:  {PermViewDeal, PermViewEscrow},
	RoleSeller: {PermViewDeal, PermViewEscrow},
	RoleAdmin:  {PermViewDeal, PermViewEscrow},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// RoleInDeal resolves the role of userID for deal. Participation wins over admin.
func RoleInDeal(deal *models.Deal, userID uuid.UUID, isAdmin bool) string {
	switch {
	case userID == uuid.Nil:
		return RoleNone
	case deal.BuyerID == userID:
		return RoleBuyer
	case deal.SellerID == userID:
		return RoleSeller
	case isAdmin:
		return RoleAdmin
	default:
		return RoleNone
	}
}
