// Package modules renders the compact dashboards embedded in chat replies.
package modules

import (
	"strings"

	"procura-backend/internal/catalog"
)

type Type string

const (
	TypeCompliance Type = "compliance"
	TypeReports    Type = "reports"
	TypeInventory  Type = "inventory"
	TypeSuppliers  Type = "suppliers"
	TypeCategories Type = "categories"
)

// Types lists every renderable module.
var Types = []Type{TypeCompliance, TypeReports, TypeInventory, TypeSuppliers, TypeCategories}

// Data flags honored by the renderer. Everything else in data is ignored.
const (
	FlagCategoryFilter = "categoryFilter"
	FlagFilteredByGMP  = "filteredByGMP"
)

const PlaceholderMessage = "No module data available"

// ParseType maps s onto a known module type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Stat is a single headline number on a module.
type Stat struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Module is the render output: a titled fragment with headline stats and
// one typed row set.
type Module struct {
	Type        Type                       `json:"type"`
	Title       string                     `json:"title"`
	Stats       []Stat                     `json:"stats,omitempty"`
	Suppliers   []catalog.Supplier         `json:"suppliers,omitempty"`
	Inventory   []catalog.InventoryItem    `json:"inventory,omitempty"`
	Compliance  []catalog.ComplianceRecord `json:"compliance,omitempty"`
	Categories  []catalog.Category         `json:"categories,omitempty"`
	Metrics     []catalog.ReportMetric     `json:"metrics,omitempty"`
	Filters     map[string]bool            `json:"filters,omitempty"`
	Placeholder bool                       `json:"placeholder,omitempty"`
	Message     string                     `json:"message,omitempty"`
}

// Renderer builds modules from a catalog.
type Renderer struct {
	cat *catalog.Catalog
}

func NewRenderer(cat *catalog.Catalog) *Renderer {
	return &Renderer{cat: cat}
}

// Render builds the module named by typ. Unknown types yield the placeholder.
func (r *Renderer) Render(typ string, data map[string]any) Module {
	t, ok := ParseType(typ)
	if !ok {
		return Placeholder(typ)
	}
	gmp := flag(data, FlagFilteredByGMP)
	catFilter := flag(data, FlagCategoryFilter)
	var m Module
	switch t {
	case TypeCompliance:
		m = r.compliance(gmp)
	case TypeReports:
		m = r.reports()
	case TypeInventory:
		m = r.inventory(catFilter)
	case TypeSuppliers:
		m = r.suppliers(gmp)
	case TypeCategories:
		m = r.categories(catFilter)
	}
	if gmp || catFilter {
		m.Filters = map[string]bool{}
		if gmp {
			m.Filters[FlagFilteredByGMP] = true
		}
		if catFilter {
			m.Filters[FlagCategoryFilter] = true
		}
	}
	return m
}

// Placeholder is the output for types outside the fixed set.
func Placeholder(typ string) Module {
	return Module{Type: Type(typ), Title: "Module", Placeholder: true, Message: PlaceholderMessage}
}

func (r *Renderer) compliance(gmpOnly bool) Module {
	var rows []catalog.ComplianceRecord
	compliant := 0
	for _, rec := range r.cat.Compliance {
		if gmpOnly && !strings.Contains(rec.Standard, "GMP") {
			continue
		}
		if rec.Status == "compliant" {
			compliant++
		}
		rows = append(rows, rec)
	}
	return Module{
		Type:  TypeCompliance,
		Title: "Supplier compliance",
		Stats: []Stat{
			{Label: "Compliant", Value: float64(compliant)},
			{Label: "Tracked", Value: float64(len(rows))},
		},
		Compliance: rows,
	}
}

func (r *Renderer) reports() Module {
	return Module{
		Type:    TypeReports,
		Title:   "Procurement performance",
		Metrics: append([]catalog.ReportMetric(nil), r.cat.Metrics...),
	}
}

// inventory shows all items, or only low-stock ones in critical categories
// when the category filter is on.
func (r *Renderer) inventory(criticalOnly bool) Module {
	critical := map[string]bool{}
	for _, c := range r.cat.Categories {
		critical[c.Name] = c.Critical
	}
	var rows []catalog.InventoryItem
	low := 0
	for _, item := range r.cat.Inventory {
		if criticalOnly && (!critical[item.Category] || !item.LowStock()) {
			continue
		}
		if item.LowStock() {
			low++
		}
		rows = append(rows, item)
	}
	return Module{
		Type:  TypeInventory,
		Title: "Inventory levels",
		Stats: []Stat{
			{Label: "SKUs", Value: float64(len(rows))},
			{Label: "Below reorder point", Value: float64(low)},
		},
		Inventory: rows,
	}
}

func (r *Renderer) suppliers(gmpOnly bool) Module {
	rows := r.cat.FilterSuppliers(catalog.SupplierFilter{GMPOnly: gmpOnly})
	var sum float64
	for _, s := range rows {
		sum += s.Rating
	}
	avg := 0.0
	if len(rows) > 0 {
		avg = sum / float64(len(rows))
	}
	return Module{
		Type:  TypeSuppliers,
		Title: "Supplier directory",
		Stats: []Stat{
			{Label: "Suppliers", Value: float64(len(rows))},
			{Label: "Average rating", Value: avg},
		},
		Suppliers: rows,
	}
}

func (r *Renderer) categories(criticalOnly bool) Module {
	var rows []catalog.Category
	var spend float64
	for _, c := range r.cat.Categories {
		if criticalOnly && !c.Critical {
			continue
		}
		spend += c.SpendUSD
		rows = append(rows, c)
	}
	return Module{
		Type:  TypeCategories,
		Title: "Category spend",
		Stats: []Stat{
			{Label: "Categories", Value: float64(len(rows))},
			{Label: "Spend", Value: spend, Unit: "USD"},
		},
		Categories: rows,
	}
}

// flag reads a boolean data flag, accepting bools and "true"/"1" strings.
func flag(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	}
	return false
}
