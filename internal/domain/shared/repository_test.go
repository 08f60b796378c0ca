package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         Filter
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"zero value", Filter{}, 1, DefaultPageSize, 0},
		{"negative page", Filter{Page: -3, PageSize: 10}, 1, 10, 0},
		{"third page", Filter{Page: 3, PageSize: 10}, 3, 10, 20},
		{"oversized page", Filter{Page: 2, PageSize: 5000}, 2, MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantSize, got.PageSize)
			assert.Equal(t, tt.wantOffset, got.Offset())
			assert.NotNil(t, got.Filters)
		})
	}
}
