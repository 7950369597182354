package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	p := New(20, 15) // two pages

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"first page", "1", 1},
		{"last page", "2", 2},
		{"beyond range clamps to last", "99", 2},
		{"non numeric clamps to first", "abc", 1},
		{"empty clamps to first", "", 1},
		{"zero clamps to first", "0", 1},
		{"negative clamps to first", "-3", 1},
		{"whitespace is trimmed", " 2 ", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Clamp(tt.raw))
		})
	}
}

func TestNumPages(t *testing.T) {
	assert.Equal(t, 1, New(0, 5).NumPages())
	assert.Equal(t, 1, New(5, 5).NumPages())
	assert.Equal(t, 2, New(6, 5).NumPages())
	assert.Equal(t, 4, New(20, 5).NumPages())
}

func TestPaginateSixItemsFivePerPage(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}

	first := Paginate(items, 5, "1")
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, first.Items)
	assert.Equal(t, 2, first.NumPages)
	assert.True(t, first.HasNext())
	assert.False(t, first.HasPrevious())

	second := Paginate(items, 5, "2")
	assert.Equal(t, []string{"f"}, second.Items)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 6, second.StartIndex())
	assert.Equal(t, 6, second.EndIndex())
	assert.False(t, second.HasNext())
	assert.Equal(t, 1, second.PreviousPageNumber())
	assert.Equal(t, []int{1, 2}, second.PageRange())
}

func TestPaginateEmpty(t *testing.T) {
	pg := Paginate([]int{}, 5, "7")

	assert.Empty(t, pg.Items)
	assert.Equal(t, 1, pg.Number)
	assert.Equal(t, 1, pg.NumPages)
	assert.Equal(t, 0, pg.StartIndex())
	assert.False(t, pg.HasOtherPages())
}

func TestBounds(t *testing.T) {
	p := New(31, 15)
	start, end := p.Bounds(3)
	assert.Equal(t, 30, start)
	assert.Equal(t, 31, end)

	start, end = p.Bounds(1)
	assert.Equal(t, 0, start)
	assert.Equal(t, 15, end)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 1, ParseNumber("x"))
	assert.Equal(t, 1, ParseNumber("-1"))
	assert.Equal(t, 42, ParseNumber("42"))
}
