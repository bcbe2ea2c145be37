package rbac

import (
	"testing"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/models"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role     string
		perm     string
		expected bool
	}{
		{RoleBuyer, PermViewDeal, true},
		{RoleBuyer, PermViewEscrow, true},
		{RoleSeller, PermViewEscrow, true},
		{RoleAdmin, PermViewDeal, true},
		{RoleNone, PermViewDeal, false},
		{"landlord", PermViewDeal, false},
		{RoleBuyer, "release_funds", false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.perm, func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.expected {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.expected)
			}
		})
	}
}

func TestRoleInDeal(t *testing.T) {
	buyer, seller, other := uuid.New(), uuid.New(), uuid.New()
	deal := &models.Deal{BuyerID: buyer, SellerID: seller}

	tests := []struct {
		name    string
		user    uuid.UUID
		isAdmin bool
		want    string
	}{
		{"buyer", buyer, false, RoleBuyer},
		{"seller", seller, false, RoleSeller},
		{"buyer who is also admin", buyer, true, RoleBuyer},
		{"admin", other, true, RoleAdmin},
		{"stranger", other, false, RoleNone},
		{"anonymous", uuid.Nil, true, RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleInDeal(deal, tt.user, tt.isAdmin); got != tt.want {
				t.Errorf("RoleInDeal() = %q, want %q", got, tt.want)
			}
		})
	}
}
