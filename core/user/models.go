package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/ecole/core"
)

// Accounts belong to school staff. Admins run the school office: students, classes, fees,
// timetables and report cards. Teachers record the results of the classes they teach.
// A role value is "<group>:<title>" and the bare group value grants the group's base rights.
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"

	RoleAdminOwner     = "admin:owner"     // proprietor, may grant any role
	RoleAdminPrincipal = "admin:principal" // head of school
	RoleAdminBursar    = "admin:bursar"    // fees and payments
)

type Role struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Priority int    `json:"-"`
}

// Roles lists the assignable roles, lowest priority first.
// Nobody may grant a role above their own highest priority.
var Roles = []Role{
	{Name: "Teacher", Value: RoleTeacher, Priority: 11},
	{Name: "Admin", Value: RoleAdmin, Priority: 21},
	{Name: "Admin Bursar", Value: RoleAdminBursar, Priority: 25},
	{Name: "Admin Principal", Value: RoleAdminPrincipal, Priority: 29},
	{Name: "Admin Owner", Value: RoleAdminOwner, Priority: 30},
}

var (
	AdminRoles   = roleGroup(RoleAdmin)
	TeacherRoles = roleGroup(RoleTeacher)
	AllRoles     = append(append([]string{}, AdminRoles...), TeacherRoles...)
)

func roleGroup(group string) []string {
	var values []string
	for _, r := range Roles {
		if strings.HasPrefix(r.Value, group) {
			values = append(values, r.Value)
		}
	}
	return values
}

// RolePriority is 0 for unknown roles.
func RolePriority(role string) int {
	for _, r := range Roles {
		if r.Value == role {
			return r.Priority
		}
	}
	return 0
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if p := RolePriority(role); p > max {
			max = p
		}
	}
	return max
}

// User is a staff account. Times are UTC.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLogin    time.Time `json:"last_login"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// IsAdmin grants the school office endpoints: dashboard, rankings, bulletin emails and every school write.
func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

// IsTeacher grants recording results, on top of the reads any signed in user has.
func (u *User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User. The first non-zero field is used.
// UsernameOrEmail matches either column against any of its (at most 2) values.
type GetFilter struct {
	ID              int
	Username        string
	Email           string
	UsernameOrEmail []string
}
