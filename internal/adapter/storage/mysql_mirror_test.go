package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveColumn_CaseInsensitive(t *testing.T) {
	columns := []string{"ID", "Item_Name", "QTY", "Notes"}

	assert.Equal(t, "Item_Name", resolveColumn(columns, nameAliases))
	assert.Equal(t, "QTY", resolveColumn(columns, quantityAliases))
	assert.Equal(t, "", resolveColumn(columns, identityAliases))
}

func TestResolveColumn_AliasPriorityOrder(t *testing.T) {
	// Both "stock" and "qty" are present; "qty" comes first in the alias
	// list, so it wins regardless of column order.
	columns := []string{"stock", "qty", "sku"}

	assert.Equal(t, "qty", resolveColumn(columns, quantityAliases))
	assert.Equal(t, "sku", resolveColumn(columns, identityAliases))
}

func TestResolveColumn_SpreadsheetishHeaders(t *testing.T) {
	columns := []string{"Code", "Product Name", "Amount"}

	assert.Equal(t, "Code", resolveColumn(columns, identityAliases))
	assert.Equal(t, "Amount", resolveColumn(columns, quantityAliases))
	// "Product Name" is not an exact alias; nothing matches.
	assert.Equal(t, "", resolveColumn(columns, nameAliases))
}
