package routes

import "citizenconnect/webclient/internal/domain"

type Link struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// NavLinks is the navigation bar for v: public links for everyone, the
// signed-in links when authenticated, and the admin link for admins only.
func NavLinks(v Viewer) []Link {
	links := []Link{
		{Label: "Home", Path: HomePath},
		{Label: "Updates", Path: "/updates"},
		{Label: "Politicians", Path: "/politicians"},
	}
	if !v.Authenticated {
		return append(links,
			Link{Label: "Login", Path: LoginPath},
			Link{Label: "Register", Path: "/register"},
		)
	}
	links = append(links,
		Link{Label: "Issues", Path: "/issues"},
		Link{Label: v.Role.Badge().Icon + " Dashboard", Path: DashboardPath},
		Link{Label: "Feedback", Path: "/feedback"},
	)
	if v.Role == domain.RoleAdmin {
		links = append(links, Link{Label: "Admin", Path: "/admin"})
	}
	return append(links, Link{Label: "Profile", Path: "/profile"})
}
