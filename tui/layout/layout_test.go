package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadToWidth(t *testing.T) {
	assert.Equal(t, "ab  ", PadToWidth("ab", 4))
	assert.Equal(t, "abc", PadToWidth("abcdef", 3))
	assert.Equal(t, "", PadToWidth("abc", 0))
}

func TestSplitWidths(t *testing.T) {
	assert.Equal(t, []int{10, 10, 11}, SplitWidths(33, 3, 1))
	assert.Equal(t, []int{1, 1}, SplitWidths(1, 2, 1))
	assert.Nil(t, SplitWidths(10, 0, 1))
}

func TestJoinColumns(t *testing.T) {
	out := JoinColumns([]string{"a\nb", "c"}, []int{2, 2}, 2, "|")
	assert.Equal(t, "a |c \nb |  ", out)
}

func TestContainer(t *testing.T) {
	out := Container{Width: 3, Height: 2}.Render("1\n2\n3")
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "1  ", lines[0])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abcdef", Truncate("abcdef", 6))
	assert.Equal(t, "ab...", Truncate("abcdefgh", 5))
}
