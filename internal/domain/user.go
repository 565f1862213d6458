package domain

// UserRole é o papel do usuário na cozinha.
type UserRole string

const (
	RoleWarehouseManager    UserRole = "warehouse-manager"
	RoleCafeteriaEmployee   UserRole = "cafeteria-employee"
	RoleCafeteriaSupervisor UserRole = "cafeteria-supervisor"
	RoleAdministrator       UserRole = "administrator"
)

// Valid informa se o papel é conhecido.
func (r UserRole) Valid() bool {
	switch r {
	case RoleWarehouseManager, RoleCafeteriaEmployee, RoleCafeteriaSupervisor, RoleAdministrator:
		return true
	}
	return false
}

// User é apenas referenciado pelos movimentos; não há cadastro nem autenticação.
type User struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Role        UserRole `json:"role"`
}
