package account

import (
	"context"

	"github.com/xenking/kart-storefront/internal/session"
)

// DefaultRole and DefaultGroups are assigned to every self-registered buyer.
const DefaultRole = "Comprador"

// DefaultGroups lists the permission groups granted at signup.
var DefaultGroups = []int64{2}

// Registration holds the fields sent to the backend signup endpoint.
type Registration struct {
	Username  string
	Password1 string
	Password2 string
	Email     string
	FirstName string
	LastName  string
	Cedula    string
	Address   string
	Phone     string
	Role      string
	Groups    []int64
}

// Profile is the identity of the logged-in user.
type Profile struct {
	Username string
	Email    string
	IsStaff  bool
}

// PasswordChange holds the fields of a password change request.
type PasswordChange struct {
	Username        string
	CurrentPassword string
	NewPassword     string
}

// Gateway is the backend surface used by account flows.
type Gateway interface {
	Login(ctx context.Context, username, password string) (session.Credentials, error)
	Signup(ctx context.Context, r Registration) error
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, c PasswordChange) error
	Profile(ctx context.Context) (*Profile, error)
}
