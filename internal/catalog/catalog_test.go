package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engrave-queue/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"Epee", "Foil", "Saber"}, c.Categories())
	assert.Equal(t, []string{"Blade", "Guard"}, c.Items("Foil"))

	e, err := c.Lookup("Foil", "Blade")
	require.NoError(t, err)
	assert.Equal(t, Entry{CostPerItem: 5, TimePerItem: 2}, e)

	e, err = c.Lookup("Epee", "Guard")
	require.NoError(t, err)
	assert.Equal(t, Entry{CostPerItem: 20, TimePerItem: 6}, e)
}

func TestLookupUnknown(t *testing.T) {
	c := Default()

	_, err := c.Lookup("Rapier", "Blade")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.Lookup("Foil", "Pommel")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "Pommel")
}

func TestNewCopiesTable(t *testing.T) {
	table := map[string]map[string]Entry{"Foil": {"Blade": {CostPerItem: 5, TimePerItem: 2}}}
	c, err := New(table)
	require.NoError(t, err)

	table["Foil"]["Blade"] = Entry{CostPerItem: 99, TimePerItem: 99}

	e, err := c.Lookup("Foil", "Blade")
	require.NoError(t, err)
	assert.Equal(t, 5.0, e.CostPerItem)

	copied := c.Table()
	copied["Foil"]["Blade"] = Entry{}
	e, _ = c.Lookup("Foil", "Blade")
	assert.Equal(t, 2, e.TimePerItem)
}

func TestNewRejectsNegativeValues(t *testing.T) {
	_, err := New(map[string]map[string]Entry{"Foil": {"Blade": {CostPerItem: -1}}})
	assert.Error(t, err)

	_, err = New(map[string]map[string]Entry{"": {"Blade": {}}})
	assert.Error(t, err)
}
