package category

import "fmt"

// ExpenseCategory is the closed set of manual expense categories. Raw bank
// categories are kept separately on the transaction and never constrained.
type ExpenseCategory string

const (
	MaterialYManoDeObra ExpenseCategory = "MATERIAL_Y_MANO_DE_OBRA"
	Suministros         ExpenseCategory = "SUMINISTROS"
	Honorarios          ExpenseCategory = "HONORARIOS"
	TasasYLicencias     ExpenseCategory = "TASAS_Y_LICENCIAS"
	Seguros             ExpenseCategory = "SEGUROS"
	Mobiliario          ExpenseCategory = "MOBILIARIO"
	Nominas             ExpenseCategory = "NOMINAS"
	TraspasoPrestamo    ExpenseCategory = "TRASPASO_PRESTAMO"
	Otros               ExpenseCategory = "OTROS"
)

var all = []ExpenseCategory{
	MaterialYManoDeObra,
	Suministros,
	Honorarios,
	TasasYLicencias,
	Seguros,
	Mobiliario,
	Nominas,
	TraspasoPrestamo,
	Otros,
}

// global categories are company-wide costs (payroll, loan transfers) that are
// never counted against a single project's budget.
var global = map[ExpenseCategory]bool{
	Nominas:          true,
	TraspasoPrestamo: true,
}

// invoiceExempt categories are excluded from missing-invoice counts.
var invoiceExempt = map[ExpenseCategory]bool{
	Nominas:          true,
	TraspasoPrestamo: true,
	TasasYLicencias:  true,
}

// All returns every known category in declaration order.
func All() []ExpenseCategory {
	out := make([]ExpenseCategory, len(all))
	copy(out, all)
	return out
}

func (c ExpenseCategory) IsGlobal() bool {
	return global[c]
}

func (c ExpenseCategory) IsInvoiceExempt() bool {
	return invoiceExempt[c]
}

// Parse validates a raw string against the closed set.
func Parse(s string) (ExpenseCategory, error) {
	c := ExpenseCategory(s)
	for _, known := range all {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown expense category: %q", s)
}
