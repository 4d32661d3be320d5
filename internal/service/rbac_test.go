package service

import (
	"testing"

	"github.com/sentrolokal/barangay/internal/repo"
)

func TestCan(t *testing.T) {
	cases := []struct {
		role string
		op   Operation
		want bool
	}{
		{repo.RoleUser, OpSubmitRequests, true},
		{repo.RoleUser, OpViewRequestFeed, true},
		{repo.RoleUser, OpReviewRequests, false},
		{repo.RoleUser, OpManageUsers, false},
		{repo.RoleUser, OpListBarangays, false},
		{repo.RoleSecretary, OpReviewRequests, true},
		{repo.RoleSecretary, OpManageUsers, true},
		{repo.RoleSecretary, OpListBarangays, false},
		{repo.RoleChairman, OpReviewRequests, true},
		{repo.RoleAdmin, OpListBarangays, true},
		{"ADMIN", OpListBarangays, true},
		{"", OpReviewRequests, false},
		{"visitor", OpSubmitRequests, false},
	}

	for _, tc := range cases {
		if got := Can(tc.role, tc.op); got != tc.want {
			t.Errorf("Can(%q, %q) = %v, want %v", tc.role, tc.op, got, tc.want)
		}
	}
}

func TestCanCreateRole(t *testing.T) {
	cases := []struct {
		caller string
		role   string
		want   bool
	}{
		{repo.RoleUser, repo.RoleUser, false},
		{repo.RoleSecretary, repo.RoleUser, true},
		{repo.RoleSecretary, repo.RoleSecretary, false},
		{repo.RoleSecretary, repo.RoleAdmin, false},
		{repo.RoleChairman, repo.RoleSecretary, true},
		{repo.RoleChairman, repo.RoleChairman, false},
		{repo.RoleAdmin, repo.RoleChairman, true},
		{repo.RoleAdmin, repo.RoleAdmin, true},
		{"ADMIN", "Admin", true},
		{"", repo.RoleUser, false},
	}

	for _, tc := range cases {
		if got := CanCreateRole(tc.caller, tc.role); got != tc.want {
			t.Errorf("CanCreateRole(%q, %q) = %v, want %v", tc.caller, tc.role, got, tc.want)
		}
	}
}

func TestCanUnknownOperation(t *testing.T) {
	if Can(repo.RoleAdmin, Operation("requests:delete")) {
		t.Fatal("unknown operations must be denied")
	}
}
