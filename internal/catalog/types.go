package catalog

// Supplier is a vendor listed in the supplier directory.
type Supplier struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Country       string   `json:"country"`
	Categories    []string `json:"categories"`
	Rating        float64  `json:"rating"`
	OnTimeRate    float64  `json:"onTimeRate"`
	LeadTimeDays  int      `json:"leadTimeDays"`
	GMPCertified  bool     `json:"gmpCertified"`
	PriceIndex    float64  `json:"priceIndex"`
	ActiveOrders  int      `json:"activeOrders"`
	Certification []string `json:"certifications,omitempty"`
}

type InventoryItem struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	OnHand       int    `json:"onHand"`
	ReorderPoint int    `json:"reorderPoint"`
	Unit         string `json:"unit"`
	Warehouse    string `json:"warehouse"`
}

// LowStock reports whether the item sits at or below its reorder point.
func (i InventoryItem) LowStock() bool {
	return i.OnHand <= i.ReorderPoint
}

type Contract struct {
	ID         string  `json:"id"`
	SupplierID string  `json:"supplierId"`
	Title      string  `json:"title"`
	ValueUSD   float64 `json:"valueUsd"`
	EndsOn     string  `json:"endsOn"`
	Status     string  `json:"status"` // active | expiring | expired
}

type ComplianceRecord struct {
	SupplierID  string `json:"supplierId"`
	Standard    string `json:"standard"` // GMP | ISO 13485 | WHO-PQ ...
	Status      string `json:"status"`   // compliant | pending | non_compliant
	LastAudit   string `json:"lastAudit"`
	NextAuditOn string `json:"nextAuditOn"`
}

type Category struct {
	Name       string  `json:"name"`
	SpendUSD   float64 `json:"spendUsd"`
	Suppliers  int     `json:"suppliers"`
	Critical   bool    `json:"critical"`
	Trend      string  `json:"trend"` // up | down | flat
	SavingsPct float64 `json:"savingsPct"`
}

type ReportMetric struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Change float64 `json:"change"`
}

type ResearchFinding struct {
	Topic   string `json:"topic"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Summary string `json:"summary"`
}

// Catalog is the full mock dataset behind replies and dashboard modules.
type Catalog struct {
	Suppliers  []Supplier         `json:"suppliers"`
	Inventory  []InventoryItem    `json:"inventory"`
	Contracts  []Contract         `json:"contracts"`
	Compliance []ComplianceRecord `json:"compliance"`
	Categories []Category         `json:"categories"`
	Metrics    []ReportMetric     `json:"metrics"`
	Research   []ResearchFinding  `json:"research"`
}
