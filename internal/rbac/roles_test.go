package rbac

import "testing"

func TestAllows(t *testing.T) {
	cases := []struct {
		role    string
		allowed []string
		want    bool
	}{
		{RoleAdmin, nil, true},
		{"ADMIN", []string{RoleSales}, true},
		{RoleSales, []string{RoleSales}, true},
		{"Sales", []string{RoleSales}, true},
		{RoleSales, nil, false},
		{"support", []string{RoleSales}, false},
		{"", []string{RoleSales}, false},
	}
	for _, tc := range cases {
		if got := Allows(tc.role, tc.allowed...); got != tc.want {
			t.Fatalf("Allows(%q, %v) = %v, want %v", tc.role, tc.allowed, got, tc.want)
		}
	}
}
