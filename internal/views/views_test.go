package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		path     string
		page     string
		notFound bool
	}{
		{"/inventory", "inventory", false},
		{"/Suppliers/", "suppliers", false},
		{"live-deals", "live_deals", false},
		{"/reports?range=q3", "reports", false},
		{"/", "chat", false},
		{"", "chat", false},
		{"/admin", NotFound, true},
		{"/inventory/extra", NotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v := Resolve(tt.path)
			assert.Equal(t, tt.page, v.Page)
			assert.Equal(t, tt.notFound, v.NotFound)
		})
	}
}

func TestAllIsACopy(t *testing.T) {
	all := All()
	assert.Len(t, all, 14)
	all[0].Page = "changed"
	assert.Equal(t, "chat", Resolve("/chat").Page)
}
