package auth

// LoginPath is the authentication surface every unauthenticated redirect
// lands on.
const LoginPath = "/login"

// DefaultDestination returns the landing path for a role after login or
// when a role gate turns a user away. Every call site that needs a
// role-based default must go through this function so the mapping cannot
// drift between them.
func DefaultDestination(r Role) string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleVendor:
		return "/vendor/dashboard"
	case RoleUser:
		return "/dashboard"
	default:
		return "/"
	}
}
