// Package views maps workspace paths onto pages.
package views

import "strings"

type View struct {
	Path     string `json:"path"`
	Page     string `json:"page"`
	Title    string `json:"title"`
	NotFound bool   `json:"notFound,omitempty"`
}

const (
	DefaultPath = "/chat"
	NotFound    = "not_found"
)

var table = []View{
	{Path: "/chat", Page: "chat", Title: "Assistant"},
	{Path: "/inventory", Page: "inventory", Title: "Inventory"},
	{Path: "/suppliers", Page: "suppliers", Title: "Suppliers"},
	{Path: "/contracts", Page: "contracts", Title: "Contracts"},
	{Path: "/compliance", Page: "compliance", Title: "Compliance"},
	{Path: "/categories", Page: "categories", Title: "Categories"},
	{Path: "/reports", Page: "reports", Title: "Reports"},
	{Path: "/workflows", Page: "workflows", Title: "Workflows"},
	{Path: "/live-deals", Page: "live_deals", Title: "Live deals"},
	{Path: "/procurement-methods", Page: "procurement_methods", Title: "Procurement methods"},
	{Path: "/quantification", Page: "quantification", Title: "Quantification"},
	{Path: "/reconciliation", Page: "reconciliation", Title: "Reconciliation"},
	{Path: "/group-purchasing", Page: "group_purchasing", Title: "Group purchasing"},
	{Path: "/quality-assurance", Page: "quality_assurance", Title: "Quality assurance"},
}

// All returns the routable views in menu order.
func All() []View {
	return append([]View(nil), table...)
}

// Resolve maps a path onto its view. The root path resolves to the chat
// view; anything outside the table is the not-found view.
func Resolve(path string) View {
	p := normalize(path)
	if p == "/" {
		p = DefaultPath
	}
	for _, v := range table {
		if v.Path == p {
			return v
		}
	}
	return View{Path: p, Page: NotFound, Title: "Page not found", NotFound: true}
}

// Exists reports whether path is a routable view.
func Exists(path string) bool {
	return !Resolve(path).NotFound
}

func normalize(path string) string {
	p := strings.ToLower(strings.TrimSpace(path))
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
