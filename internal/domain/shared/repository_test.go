package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "sideways"}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, "asc", f.OrderDir)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 10, OrderDir: "desc"}.Normalize()
	assert.Equal(t, 20, f.Offset())
	assert.Equal(t, "desc", f.OrderDir)
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Items, 2)

	empty := NewPaginated[int](nil, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.NotNil(t, empty.Items)

	exact := NewPaginated([]int{1}, 20, 2, 10)
	assert.Equal(t, 2, exact.TotalPages)
}
