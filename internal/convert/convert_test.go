package convert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/cygraph/internal/convert"
)

func TestToFloat64(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(3.5), 3.5, true},
		{float32(2), 2, true},
		{int(4), 4, true},
		{int64(5), 5, true},
		{int32(6), 6, true},
		{"7.5", 7.5, true},
		{"not-a-number", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := convert.ToFloat64(c.in)
		assert.Equal(t, c.ok, ok, "input %v", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "input %v", c.in)
		}
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(5), 5, true},
		{int(4), 4, true},
		{int32(6), 6, true},
		{float64(3.9), 3, true}, // truncates toward zero
		{float32(2), 2, true},
		{"42", 42, true},
		{"3.9", 3, true},
		{"nope", 0, false},
		{[]byte("x"), 0, false},
	}
	for _, c := range cases {
		got, ok := convert.ToInt64(c.in)
		assert.Equal(t, c.ok, ok, "input %v", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "input %v", c.in)
		}
	}
}
