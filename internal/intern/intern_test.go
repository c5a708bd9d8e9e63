package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Intern_CaseInsensitiveCanonicalization(t *testing.T) {
	tbl := New()

	first := tbl.Intern("Customers")
	second := tbl.Intern("CUSTOMERS")
	third := tbl.Intern("customers")

	assert.Equal(t, "Customers", first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_Intern_DistinctKeys(t *testing.T) {
	tbl := New()
	tbl.Intern("Customers")
	tbl.Intern("Orders")
	assert.Equal(t, 2, tbl.Len())
}
