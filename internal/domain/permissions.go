package domain

const (
	PermProcessSales    = "process_sales"
	PermManageInventory = "manage_inventory"
	PermManageFinance   = "manage_finance"
	PermManageSuppliers = "manage_suppliers"
	PermManageSystem    = "manage_system"
)

const (
	RoleAdmin            = "admin"
	RoleManager          = "manager"
	RoleSales            = "sales"
	RoleInventoryManager = "inventory_manager"
	RoleAccountant       = "accountant"
	RoleBaker            = "baker"
)

var rolePermissions = map[string][]string{
	RoleAdmin:            {PermProcessSales, PermManageInventory, PermManageFinance, PermManageSuppliers, PermManageSystem},
	RoleManager:          {PermProcessSales, PermManageInventory, PermManageFinance, PermManageSuppliers},
	RoleSales:            {PermProcessSales},
	RoleInventoryManager: {PermManageInventory, PermManageSuppliers},
	RoleAccountant:       {PermManageFinance},
	RoleBaker:            {},
}

func IsRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

func (a Actor) Can(permission string) bool {
	for _, p := range rolePermissions[a.Role] {
		if p == permission {
			return true
		}
	}
	return false
}
