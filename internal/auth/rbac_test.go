package auth

import "testing"

func TestCapabilityTable(t *testing.T) {
	tests := []struct {
		role       Role
		capability Capability
		want       bool
	}{
		{RoleEmployee, CapabilityQuerySubmission, true},
		{RoleEmployee, CapabilityDocumentManagement, false},
		{RoleEmployee, CapabilityAnalyticsView, false},

		{RoleManager, CapabilityQuerySubmission, true},
		{RoleManager, CapabilityDocumentManagement, false},
		{RoleManager, CapabilityAnalyticsView, false},

		{RoleHRAdmin, CapabilityQuerySubmission, true},
		{RoleHRAdmin, CapabilityDocumentManagement, true},
		{RoleHRAdmin, CapabilityAnalyticsView, true},

		{RoleHRManager, CapabilityQuerySubmission, true},
		{RoleHRManager, CapabilityDocumentManagement, true},
		{RoleHRManager, CapabilityAnalyticsView, true},

		{RoleExecutive, CapabilityQuerySubmission, true},
		{RoleExecutive, CapabilityDocumentManagement, false},
		{RoleExecutive, CapabilityAnalyticsView, true},
	}

	for _, tt := range tests {
		if got := tt.role.Has(tt.capability); got != tt.want {
			t.Errorf("%s.Has(%s) = %v, want %v", tt.role, tt.capability, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input  string
		want   Role
		wantOK bool
	}{
		{"employee", RoleEmployee, true},
		{"HR_Admin", RoleHRAdmin, true},
		{"  executive ", RoleExecutive, true},
		{"", "", false},
		{"superuser", "", false},
		{"admin", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.input)
		if ok != tt.wantOK {
			t.Errorf("ParseRole(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseRole(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestUnknownRoleHasNothing(t *testing.T) {
	unknown := Role("superuser")
	for _, c := range []Capability{CapabilityQuerySubmission, CapabilityDocumentManagement, CapabilityAnalyticsView} {
		if unknown.Has(c) {
			t.Errorf("unknown role should have no capabilities, has %s", c)
		}
	}
}
