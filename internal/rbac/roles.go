package rbac

// Role names carried in access tokens. Keep these stable; the login
// collaborator issues them.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// Writers may trigger ingestion and record management dispositions.
var Writers = []string{RoleOperator, RoleAdmin}
