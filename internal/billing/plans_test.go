package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"integen/api/internal/models"
)

func TestLookup(t *testing.T) {
	plan, info, ok := Lookup("pro")
	assert.True(t, ok)
	assert.Equal(t, models.PlanPro, plan)
	assert.Equal(t, int64(2500), info.Amount)
	assert.Equal(t, "InteGen — Pro", info.ProductName())

	_, _, ok = Lookup("enterprise")
	assert.False(t, ok)

	// "free" has no price and must not be purchasable.
	_, _, ok = Lookup("free")
	assert.False(t, ok)
}
