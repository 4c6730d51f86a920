package access_test

import (
	"testing"

	"github.com/edgard/goalbot/internal/access"
)

func TestPermissions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role        access.Role
		read        bool
		manageBoard bool
		editContent bool
		editable    bool
	}{
		{role: access.RoleOwner, read: true, manageBoard: true, editContent: true, editable: false},
		{role: access.RoleWriter, read: true, manageBoard: false, editContent: true, editable: true},
		{role: access.RoleReader, read: true, manageBoard: false, editContent: false, editable: true},
		{role: access.Role(0), read: false, manageBoard: false, editContent: false, editable: false},
		{role: access.Role(9), read: false, manageBoard: false, editContent: false, editable: false},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			t.Parallel()
			if got := access.CanRead(tt.role); got != tt.read {
				t.Errorf("CanRead = %v, want %v", got, tt.read)
			}
			if got := access.CanManageBoard(tt.role); got != tt.manageBoard {
				t.Errorf("CanManageBoard = %v, want %v", got, tt.manageBoard)
			}
			if got := access.CanEditContent(tt.role); got != tt.editContent {
				t.Errorf("CanEditContent = %v, want %v", got, tt.editContent)
			}
			if got := tt.role.Editable(); got != tt.editable {
				t.Errorf("Editable = %v, want %v", got, tt.editable)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	for _, r := range []access.Role{access.RoleOwner, access.RoleWriter, access.RoleReader} {
		got, err := access.ParseRole(r.String())
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %v, %v; want %v", r.String(), got, err, r)
		}
	}
	if _, err := access.ParseRole("admin"); err == nil {
		t.Error("ParseRole(admin) error = nil, want error")
	}
}
