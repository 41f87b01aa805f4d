package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int
	}{
		{name: "plain four-part version", in: "25.1.0.237", want: []int{25, 1, 0, 237}},
		{name: "commit hash suffix stripped", in: "25.1.0.237-7401c644b4", want: []int{25, 1, 0, 237}},
		{name: "two-part version", in: "25.1", want: []int{25, 1}},
		{name: "empty string", in: "", want: nil},
		{name: "non-numeric segment", in: "25.1.x.237", want: nil},
		{name: "garbage", in: "daily builds only", want: nil},
		{name: "lone hash", in: "-7401c644b4", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
		want int
	}{
		{name: "equal", a: []int{25, 1, 0}, b: []int{25, 1, 0}, want: 0},
		{name: "less in last segment", a: []int{25, 1, 0, 50}, b: []int{25, 1, 0, 150}, want: -1},
		{name: "greater in first segment", a: []int{26, 0}, b: []int{25, 9}, want: 1},
		{name: "prefix compares less", a: []int{25, 1}, b: []int{25, 1, 0}, want: -1},
		{name: "longer compares greater", a: []int{25, 1, 0}, b: []int{25, 1}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestAtLeast(t *testing.T) {
	fixed := Parse("25.1.0.100")

	assert.True(t, AtLeast("25.1.0.150", fixed), "post-fix version is at least the fix version")
	assert.True(t, AtLeast("25.1.0.100", fixed), "the fix version itself counts")
	assert.False(t, AtLeast("25.1.0.50", fixed), "pre-fix version")
	assert.False(t, AtLeast("", fixed), "unknown version is unordered")
	assert.False(t, AtLeast("not-a-version", fixed), "unparseable version is unordered")
	assert.False(t, AtLeast("25.1.0.150", nil), "no fix tuple means no ordering")
}
