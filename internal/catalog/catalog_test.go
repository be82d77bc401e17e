package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSuppliers(t *testing.T) {
	c := Default()

	t.Run("gmp only", func(t *testing.T) {
		for _, s := range c.FilterSuppliers(SupplierFilter{GMPOnly: true}) {
			assert.True(t, s.GMPCertified, s.Name)
		}
	})

	t.Run("category and limit keep rating order", func(t *testing.T) {
		got := c.FilterSuppliers(SupplierFilter{Category: "antibiotics", Limit: 1})
		require.Len(t, got, 1)
		assert.Equal(t, "MedSource Pharma", got[0].Name)
	})

	t.Run("top three", func(t *testing.T) {
		got := c.FilterSuppliers(SupplierFilter{Limit: 3})
		require.Len(t, got, 3)
		assert.GreaterOrEqual(t, got[0].Rating, got[1].Rating)
		assert.GreaterOrEqual(t, got[1].Rating, got[2].Rating)
	})
}

func TestMatchCategory(t *testing.T) {
	c := Default()

	cat, ok := c.MatchCategory("Need VACCINES for Q3")
	assert.True(t, ok)
	assert.Equal(t, "vaccines", cat)

	cat, ok = c.MatchCategory("who sells amoxicillin?")
	assert.True(t, ok)
	assert.Equal(t, "antibiotics", cat)

	_, ok = c.MatchCategory("hello there")
	assert.False(t, ok)
}

func TestResearchForFallsBackToGeneral(t *testing.T) {
	c := Default()
	assert.Equal(t, "insulin", c.ResearchFor("insulin")[0].Topic)
	general := c.ResearchFor("unknown")
	require.NotEmpty(t, general)
	assert.Equal(t, "general", general[0].Topic)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file uses defaults", func(t *testing.T) {
		c, err := NewFileSource(filepath.Join(dir, "absent.json")).Load()
		require.NoError(t, err)
		assert.Equal(t, Default().Suppliers, c.Suppliers)
	})

	t.Run("partial override keeps other sections", func(t *testing.T) {
		path := filepath.Join(dir, "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"suppliers":[{"id":"x","name":"Only One","rating":5}]}`), 0o644))
		c, err := NewFileSource(path).Load()
		require.NoError(t, err)
		require.Len(t, c.Suppliers, 1)
		assert.Equal(t, "Only One", c.Suppliers[0].Name)
		assert.Equal(t, Default().Inventory, c.Inventory)
	})

	t.Run("write then load", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "catalog.json")
		src := NewFileSource(path)
		require.NoError(t, src.Write(Default()))
		c, err := src.Load()
		require.NoError(t, err)
		assert.Equal(t, Default(), c)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
		_, err := NewFileSource(path).Load()
		assert.Error(t, err)
	})
}

func TestMatchCategorySkipsUnnamedItems(t *testing.T) {
	c := Default()
	c.Inventory = append([]InventoryItem{{SKU: "X", Name: ""}, {SKU: "Y", Name: "   "}}, c.Inventory...)

	cat, ok := c.MatchCategory("who sells amoxicillin?")
	assert.True(t, ok)
	assert.Equal(t, "antibiotics", cat)

	_, ok = c.MatchCategory("show suppliers")
	assert.False(t, ok)
}

func TestRenewalCandidates(t *testing.T) {
	c := Default()
	due := c.RenewalCandidates()
	require.NotEmpty(t, due)
	for _, ct := range due {
		assert.Contains(t, []string{"expiring", "expired"}, ct.Status, ct.ID)
	}
}

func TestFindContract(t *testing.T) {
	c := Default()

	ct, ok := c.FindContract("the Insulin Supply Agreement please")
	require.True(t, ok)
	assert.Equal(t, "ctr-2024-019", ct.ID)

	ct, ok = c.FindContract("CTR-2023-007")
	require.True(t, ok)
	assert.Equal(t, "sup-002", ct.SupplierID)

	supplier, ok := c.SupplierByID(ct.SupplierID)
	require.True(t, ok)
	assert.Equal(t, "GlobalMed Distributors", supplier.Name)

	_, ok = c.FindContract("  ")
	assert.False(t, ok)
	_, ok = c.SupplierByID("sup-404")
	assert.False(t, ok)
}
