package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core"
)

func newTestValidator(t *testing.T) *validator.Validate {
	t.Helper()
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	InitValidators(validate, translator, core.Getwd())
	return validate
}

func TestNewUser_passwordPolicy(t *testing.T) {
	validate := newTestValidator(t)

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Ab1! xyzw", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "not complex", pwd: "abcdefgh1", wantTag: pwdComplexityTag},
		{name: "similar to username", pwd: "Kabil@123", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@$$w0rd", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "LolC@t123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "Jean",
				Username:        "kabila123",
				Email:           "jean@ecole.cd",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, vErrs, 1)
			assert.Equal(t, "password", vErrs[0].Field())
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}

func TestNewUser_usernameOrEmail(t *testing.T) {
	validate := newTestValidator(t)

	err := validate.Struct(NewUser{Name: "Jean", Password: "LolC@t123", PasswordConfirm: "LolC@t123"})
	require.Error(t, err)
	vErrs := err.(validator.ValidationErrors)
	fields := make([]string, 0, len(vErrs))
	for _, e := range vErrs {
		fields = append(fields, e.Field())
		assert.Equal(t, usernameOrEmailTag, e.Tag())
	}
	assert.ElementsMatch(t, []string{"username", "email"}, fields)
}

func TestNewUser_roles(t *testing.T) {
	validate := newTestValidator(t)

	nu := NewUser{Name: "Jean", Username: "jean", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}
	nu.Roles = []string{RoleAdmin, RoleTeacher}
	assert.NoError(t, validate.Struct(nu))

	nu.Roles = []string{RoleAdmin, "student:"}
	err := validate.Struct(nu)
	require.Error(t, err)
	assert.Equal(t, allRolesTag, err.(validator.ValidationErrors)[0].Tag())
}

func TestUser_roles(t *testing.T) {
	admin := User{Roles: []string{RoleAdminPrincipal}}
	teacher := User{Roles: []string{RoleTeacher}}

	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsTeacher())
	assert.True(t, teacher.IsTeacher())
	assert.False(t, teacher.IsAdmin())
	assert.Equal(t, 29, MaxRolePriority(admin.Roles))
	assert.Equal(t, 30, MaxRolePriority(AllRoles))
	assert.Equal(t, 0, MaxRolePriority(nil))
	assert.Equal(t, 0, RolePriority("student:"))

	assert.Equal(t, []string{RoleAdmin, RoleAdminBursar, RoleAdminPrincipal, RoleAdminOwner}, AdminRoles)
	assert.Equal(t, []string{RoleTeacher}, TeacherRoles)
	assert.Len(t, AllRoles, len(Roles))
	for i := 1; i < len(Roles); i++ {
		assert.Less(t, Roles[i-1].Priority, Roles[i].Priority, Roles[i].Value)
	}
}
