package catalog

import (
	"sort"
	"strings"
)

// Default returns the built-in mock dataset. Every call returns a fresh copy.
func Default() *Catalog {
	return &Catalog{
		Suppliers: []Supplier{
			{ID: "sup-001", Name: "MedSource Pharma", Country: "India", Categories: []string{"antibiotics", "analgesics"}, Rating: 4.7, OnTimeRate: 0.96, LeadTimeDays: 21, GMPCertified: true, PriceIndex: 0.92, ActiveOrders: 14, Certification: []string{"WHO-GMP", "ISO 9001"}},
			{ID: "sup-002", Name: "GlobalMed Distributors", Country: "Germany", Categories: []string{"vaccines", "biologics"}, Rating: 4.5, OnTimeRate: 0.93, LeadTimeDays: 30, GMPCertified: true, PriceIndex: 1.08, ActiveOrders: 9, Certification: []string{"EU-GMP"}},
			{ID: "sup-003", Name: "Apex Generics", Country: "China", Categories: []string{"antibiotics", "antimalarials"}, Rating: 4.1, OnTimeRate: 0.87, LeadTimeDays: 35, GMPCertified: false, PriceIndex: 0.81, ActiveOrders: 6},
			{ID: "sup-004", Name: "Nordic BioSupply", Country: "Sweden", Categories: []string{"insulin", "biologics"}, Rating: 4.8, OnTimeRate: 0.98, LeadTimeDays: 18, GMPCertified: true, PriceIndex: 1.15, ActiveOrders: 11, Certification: []string{"EU-GMP", "ISO 13485"}},
			{ID: "sup-005", Name: "Sunrise Healthcare", Country: "Kenya", Categories: []string{"antimalarials", "analgesics"}, Rating: 3.9, OnTimeRate: 0.82, LeadTimeDays: 28, GMPCertified: false, PriceIndex: 0.88, ActiveOrders: 4},
			{ID: "sup-006", Name: "Atlas Medical Supplies", Country: "United States", Categories: []string{"consumables", "vaccines"}, Rating: 4.3, OnTimeRate: 0.91, LeadTimeDays: 14, GMPCertified: true, PriceIndex: 1.02, ActiveOrders: 17, Certification: []string{"FDA-cGMP"}},
		},
		Inventory: []InventoryItem{
			{SKU: "AMX-500", Name: "Amoxicillin 500mg capsules", Category: "antibiotics", OnHand: 12000, ReorderPoint: 15000, Unit: "capsules", Warehouse: "Central"},
			{SKU: "PCM-500", Name: "Paracetamol 500mg tablets", Category: "analgesics", OnHand: 84000, ReorderPoint: 30000, Unit: "tablets", Warehouse: "Central"},
			{SKU: "INS-100", Name: "Insulin glargine 100IU/ml", Category: "insulin", OnHand: 900, ReorderPoint: 1200, Unit: "vials", Warehouse: "Cold chain"},
			{SKU: "ART-20", Name: "Artemether/Lumefantrine 20/120mg", Category: "antimalarials", OnHand: 46000, ReorderPoint: 20000, Unit: "tablets", Warehouse: "North"},
			{SKU: "MMR-01", Name: "MMR vaccine", Category: "vaccines", OnHand: 2100, ReorderPoint: 2500, Unit: "doses", Warehouse: "Cold chain"},
			{SKU: "SYR-05", Name: "Disposable syringe 5ml", Category: "consumables", OnHand: 150000, ReorderPoint: 50000, Unit: "units", Warehouse: "South"},
		},
		Contracts: []Contract{
			{ID: "ctr-2024-011", SupplierID: "sup-001", Title: "Antibiotics framework agreement", ValueUSD: 1250000, EndsOn: "2026-12-31", Status: "active"},
			{ID: "ctr-2024-019", SupplierID: "sup-004", Title: "Insulin supply agreement", ValueUSD: 830000, EndsOn: "2026-11-30", Status: "expiring"},
			{ID: "ctr-2023-007", SupplierID: "sup-002", Title: "Pediatric vaccines tender", ValueUSD: 2100000, EndsOn: "2026-03-31", Status: "expired"},
			{ID: "ctr-2025-002", SupplierID: "sup-006", Title: "Consumables catalogue pricing", ValueUSD: 410000, EndsOn: "2027-06-30", Status: "active"},
		},
		Compliance: []ComplianceRecord{
			{SupplierID: "sup-001", Standard: "WHO-GMP", Status: "compliant", LastAudit: "2026-02-14", NextAuditOn: "2027-02-14"},
			{SupplierID: "sup-002", Standard: "EU-GMP", Status: "compliant", LastAudit: "2025-11-03", NextAuditOn: "2026-11-03"},
			{SupplierID: "sup-003", Standard: "WHO-GMP", Status: "non_compliant", LastAudit: "2026-05-20", NextAuditOn: "2026-11-20"},
			{SupplierID: "sup-004", Standard: "ISO 13485", Status: "compliant", LastAudit: "2026-01-09", NextAuditOn: "2027-01-09"},
			{SupplierID: "sup-005", Standard: "WHO-GMP", Status: "pending", LastAudit: "", NextAuditOn: "2026-10-30"},
			{SupplierID: "sup-006", Standard: "FDA-cGMP", Status: "compliant", LastAudit: "2026-06-01", NextAuditOn: "2027-06-01"},
		},
		Categories: []Category{
			{Name: "antibiotics", SpendUSD: 3200000, Suppliers: 2, Critical: true, Trend: "up", SavingsPct: 6.5},
			{Name: "vaccines", SpendUSD: 4100000, Suppliers: 2, Critical: true, Trend: "flat", SavingsPct: 3.1},
			{Name: "insulin", SpendUSD: 1900000, Suppliers: 1, Critical: true, Trend: "up", SavingsPct: 1.8},
			{Name: "antimalarials", SpendUSD: 1400000, Suppliers: 2, Critical: false, Trend: "down", SavingsPct: 8.2},
			{Name: "analgesics", SpendUSD: 650000, Suppliers: 2, Critical: false, Trend: "flat", SavingsPct: 4.4},
			{Name: "consumables", SpendUSD: 980000, Suppliers: 1, Critical: false, Trend: "down", SavingsPct: 11.0},
		},
		Metrics: []ReportMetric{
			{Key: "total_spend", Label: "Total spend (YTD)", Value: 12.23, Unit: "M USD", Change: 4.2},
			{Key: "savings", Label: "Negotiated savings", Value: 0.71, Unit: "M USD", Change: 12.5},
			{Key: "otif", Label: "On-time in-full", Value: 91.4, Unit: "%", Change: -1.2},
			{Key: "open_rfqs", Label: "Open RFQs", Value: 7, Unit: "", Change: 2},
			{Key: "stockouts", Label: "Stock-out events", Value: 3, Unit: "", Change: -4},
		},
		Research: []ResearchFinding{
			{Topic: "amoxicillin", Title: "Amoxicillin API prices up 9% quarter on quarter", Source: "Market intelligence brief", Summary: "Raw material constraints in two producing regions are pushing API prices higher; lock in volumes for the next two quarters."},
			{Topic: "insulin", Title: "Biosimilar insulin glargine approvals widen supplier base", Source: "Regulatory watch", Summary: "Three new biosimilar approvals are expected to reduce unit prices by 10-15% within a year."},
			{Topic: "vaccines", Title: "Cold-chain capacity remains the main constraint for MMR supply", Source: "Logistics report", Summary: "Lead times for cold-chain freight increased by six days on average; plan replenishment earlier."},
			{Topic: "antimalarials", Title: "ACT prices stable with strong generic competition", Source: "Pooled procurement bulletin", Summary: "Artemether/lumefantrine pricing is flat; pooled tenders continue to deliver the best unit cost."},
			{Topic: "general", Title: "Global generics shortage watchlist", Source: "Supply risk monitor", Summary: "Twelve essential generics are on the shortage watchlist; diversify sourcing for critical categories."},
		},
	}
}

// SuppliersByRating returns suppliers sorted by rating, best first.
func (c *Catalog) SuppliersByRating() []Supplier {
	out := append([]Supplier(nil), c.Suppliers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out
}

func (c *Catalog) SupplierByID(id string) (Supplier, bool) {
	for _, s := range c.Suppliers {
		if s.ID == id {
			return s, true
		}
	}
	return Supplier{}, false
}

// RenewalCandidates returns contracts that are expiring or already expired.
func (c *Catalog) RenewalCandidates() []Contract {
	var out []Contract
	for _, ct := range c.Contracts {
		if ct.Status == "expiring" || ct.Status == "expired" {
			out = append(out, ct)
		}
	}
	return out
}

// FindContract matches ref against contract ids and titles, case-insensitively.
func (c *Catalog) FindContract(ref string) (Contract, bool) {
	m := strings.ToLower(strings.TrimSpace(ref))
	if m == "" {
		return Contract{}, false
	}
	for _, ct := range c.Contracts {
		id, title := strings.ToLower(ct.ID), strings.ToLower(ct.Title)
		if strings.Contains(m, id) || strings.Contains(m, title) || strings.Contains(title, m) {
			return ct, true
		}
	}
	return Contract{}, false
}

// MatchCategory returns the first category name mentioned in text, matching
// either the category itself or an inventory item belonging to it.
func (c *Catalog) MatchCategory(text string) (string, bool) {
	m := strings.ToLower(text)
	for _, cat := range c.Categories {
		if strings.Contains(m, cat.Name) {
			return cat.Name, true
		}
	}
	for _, item := range c.Inventory {
		if f := strings.Fields(item.Name); len(f) > 0 && strings.Contains(m, strings.ToLower(f[0])) {
			return item.Category, true
		}
	}
	return "", false
}

// ResearchFor returns findings for the given topic, or the general ones.
func (c *Catalog) ResearchFor(topic string) []ResearchFinding {
	var out []ResearchFinding
	for _, f := range c.Research {
		if topic != "" && f.Topic == topic {
			out = append(out, f)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, f := range c.Research {
		if f.Topic == "general" {
			out = append(out, f)
		}
	}
	return out
}

func hasCategory(s Supplier, category string) bool {
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// SupplierFilter narrows the supplier directory.
type SupplierFilter struct {
	Category string
	GMPOnly  bool
	Limit    int
}

// FilterSuppliers applies f to the directory, keeping rating order.
func (c *Catalog) FilterSuppliers(f SupplierFilter) []Supplier {
	var out []Supplier
	for _, s := range c.SuppliersByRating() {
		if f.GMPOnly && !s.GMPCertified {
			continue
		}
		if f.Category != "" && !hasCategory(s, f.Category) {
			continue
		}
		out = append(out, s)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
