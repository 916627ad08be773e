package shared

// Sales and purchasing permissions.
const (
	// Invoicing
	PermVerFacturas      = "VerFacturas"
	PermCrearFacturas    = "CrearFacturas"
	PermCancelarFacturas = "CancelarFacturas"
	PermImprimirRecibos  = "ImprimirRecibos"

	// Suppliers and supplier orders
	PermVerProveedores       = "VerProveedores"
	PermEditarProveedores    = "EditarProveedores"
	PermVerOrdenesCompra     = "VerOrdenesCompra"
	PermCrearOrdenesCompra   = "CrearOrdenesCompra"
	PermRecibirOrdenesCompra = "RecibirOrdenesCompra"

	// Reporting
	PermVerReportes      = "VerReportes"
	PermExportarReportes = "ExportarReportes"
)

// SalesScopes lists all permissions related to invoicing.
func SalesScopes() []string {
	return []string{
		PermVerFacturas,
		PermCrearFacturas,
		PermCancelarFacturas,
		PermImprimirRecibos,
	}
}

// ProcurementScopes lists all permissions related to supplier orders.
func ProcurementScopes() []string {
	return []string{
		PermVerProveedores,
		PermEditarProveedores,
		PermVerOrdenesCompra,
		PermCrearOrdenesCompra,
		PermRecibirOrdenesCompra,
	}
}

// ReportScopes lists all reporting permissions.
func ReportScopes() []string {
	return []string{PermVerReportes, PermExportarReportes}
}

// AllScopes returns every permission the application declares. Used by
// the seeding CLI and by the permissions listing screen.
func AllScopes() []string {
	all := CoreScopes()
	all = append(all, InventoryScopes()...)
	all = append(all, SalesScopes()...)
	all = append(all, ProcurementScopes()...)
	all = append(all, ReportScopes()...)
	return all
}
