package role

import "strings"

// Role is the closed set of account kinds the backend issues. The zero value
// is Unauthenticated.
type Role string

const (
	Unauthenticated Role = ""
	Student         Role = "STUDENT"
	Employer        Role = "EMPLOYER"
	Admin           Role = "ADMIN"
)

// Parse maps a wire role string onto the enumeration. Unknown strings map to
// Unauthenticated and ok is false.
func Parse(s string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Student):
		return Student, true
	case string(Employer):
		return Employer, true
	case string(Admin):
		return Admin, true
	}
	return Unauthenticated, false
}

func (r Role) String() string {
	if r == Unauthenticated {
		return "UNAUTHENTICATED"
	}
	return string(r)
}

// Capabilities is the set of actions enabled for the acting identity.
type Capabilities struct {
	CanCreateListing bool
	CanApply         bool
	CanModerate      bool
}

func (c Capabilities) None() bool {
	return !c.CanCreateListing && !c.CanApply && !c.CanModerate
}

// PolicyFor is total over every Role value. Anything that is not exactly one
// of the three known roles gets the empty set.
func PolicyFor(r Role) Capabilities {
	switch r {
	case Student:
		return Capabilities{CanApply: true}
	case Employer:
		return Capabilities{CanCreateListing: true}
	case Admin:
		return Capabilities{CanModerate: true}
	default:
		return Capabilities{}
	}
}

// Affordances drives which navigation elements a renderer exposes.
type Affordances struct {
	Capabilities
	ShowLogin     bool
	ShowRegister  bool
	ShowLogout    bool
	ShowBackpanel bool
}

func AffordancesFor(r Role, authenticated bool) Affordances {
	caps := PolicyFor(r)
	return Affordances{
		Capabilities:  caps,
		ShowLogin:     !authenticated,
		ShowRegister:  !authenticated,
		ShowLogout:    authenticated,
		ShowBackpanel: caps.CanModerate,
	}
}
