package model

import "testing"

func TestHasVerifiedIdentity(t *testing.T) {
	googleID := "g-123"
	empty := ""

	cases := []struct {
		name string
		user *User
		want bool
	}{
		{"nil user", nil, false},
		{"never signed in with google", &User{Email: "a@example.com"}, false},
		{"empty google id", &User{Email: "a@example.com", GoogleID: &empty}, false},
		{"google id set", &User{Email: "a@example.com", GoogleID: &googleID}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.HasVerifiedIdentity(); got != tc.want {
				t.Errorf("HasVerifiedIdentity() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	var nilUser *User
	if nilUser.IsAdmin() {
		t.Error("nil user should not be admin")
	}
	if (&User{Role: RoleUser}).IsAdmin() {
		t.Error("plain user should not be admin")
	}
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin role not recognized")
	}
}
