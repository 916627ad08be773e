package shared

// Inventory permissions declared for authorization checks.
const (
	PermVerProductos      = "VerProductos"
	PermCrearProductos    = "CrearProductos"
	PermEditarProductos   = "EditarProductos"
	PermEliminarProductos = "EliminarProductos"
	PermAjustarInventario = "AjustarInventario"

	// PermVerCostos gates purchase-cost visibility; without it the
	// inventory endpoints redact cost fields.
	PermVerCostos = "VerCostos"
)

// InventoryScopes lists all permissions related to the inventory module.
func InventoryScopes() []string {
	return []string{
		PermVerProductos,
		PermCrearProductos,
		PermEditarProductos,
		PermEliminarProductos,
		PermAjustarInventario,
		PermVerCostos,
	}
}
