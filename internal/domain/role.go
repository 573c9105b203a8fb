package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleCitizen    Role = "CITIZEN"
	RolePolitician Role = "POLITICIAN"
	RoleModerator  Role = "MODERATOR"
	RoleAdmin      Role = "ADMIN"
)

var ErrUnknownRole = errors.New("unknown role")

func Roles() []Role {
	return []Role{RoleCitizen, RolePolitician, RoleModerator, RoleAdmin}
}

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCitizen, RolePolitician, RoleModerator, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*r = ""
		return nil
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type Badge struct {
	Class string `json:"class"`
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

func (r Role) Badge() Badge {
	switch r {
	case RoleAdmin:
		return Badge{Class: "badge-admin", Icon: "👑", Label: "Admin"}
	case RolePolitician:
		return Badge{Class: "badge-politician", Icon: "🏛️", Label: "Politician"}
	case RoleModerator:
		return Badge{Class: "badge-moderator", Icon: "🛡️", Label: "Moderator"}
	case RoleCitizen:
		return Badge{Class: "badge-citizen", Icon: "👤", Label: "Citizen"}
	default:
		return Badge{Class: "badge-citizen", Icon: "👤", Label: "Citizen"}
	}
}
