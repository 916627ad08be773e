package shared

// Core administration permissions. Permission names keep the Spanish
// PascalCase identifiers used across the shop's historical data, so the
// rows already present in the permissions table keep working.
const (
	PermVerUsuarios    = "VerUsuarios"
	PermEditarUsuarios = "EditarUsuarios"

	PermVerRoles     = "VerRoles"
	PermEditarRoles  = "EditarRoles"
	PermAsignarRoles = "AsignarRoles"

	PermVerPermisos = "VerPermisos"
)

// RolAdministrador is the role label that implies every permission.
const RolAdministrador = "Administrador"

// CoreScopes lists all permissions related to platform administration.
func CoreScopes() []string {
	return []string{
		PermVerUsuarios,
		PermEditarUsuarios,
		PermVerRoles,
		PermEditarRoles,
		PermAsignarRoles,
		PermVerPermisos,
	}
}
