package common

// Role is the closed set of user roles. Every authorization check compares
// against these constants; free-form role strings never cross a gate.
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleCaregiver Role = "caregiver"
	RoleAdmin     Role = "admin"
)

// IsValid reports whether r is one of the four known roles.
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleCaregiver, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
