package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSetsMetadata(t *testing.T) {
	err := Newf("bin %d missing", 42).
		Component("datastore").
		Category(CategoryNotFound).
		Context("bin_id", 42).
		Build()

	assert.Equal(t, "bin 42 missing", err.Error())
	assert.Equal(t, "datastore", err.GetComponent())
	assert.Equal(t, string(CategoryNotFound), err.GetCategory())
	assert.Equal(t, 42, err.GetContext()["bin_id"])
	assert.False(t, err.Timestamp.IsZero())
}

func TestBuildDefaults(t *testing.T) {
	err := Newf("boom").Build()
	assert.Equal(t, ComponentUnknown, err.GetComponent())
	assert.Equal(t, string(CategoryGeneric), err.GetCategory())
	assert.Nil(t, err.GetContext())
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	base := NewStd("base failure")
	wrapped := New(fmt.Errorf("context: %w", base)).
		Category(CategoryDatabase).
		Build()

	require.ErrorIs(t, wrapped, base)
	assert.True(t, IsCategory(wrapped, CategoryDatabase))
	assert.False(t, IsCategory(wrapped, CategoryConflict))
}

func TestCategoryPredicates(t *testing.T) {
	nf := Newf("missing").Category(CategoryNotFound).Build()
	cf := Newf("duplicate").Category(CategoryConflict).Build()
	va := Newf("bad input").Category(CategoryValidation).Build()

	assert.True(t, IsNotFound(nf))
	assert.True(t, IsConflict(cf))
	assert.True(t, IsValidation(va))
	assert.False(t, IsNotFound(cf))
	assert.False(t, IsNotFound(NewStd("plain")))
}

func TestContextCopyIsIsolated(t *testing.T) {
	err := Newf("x").Context("k", "v").Build()
	c := err.GetContext()
	c["k"] = "mutated"
	assert.Equal(t, "v", err.GetContext()["k"])
}
