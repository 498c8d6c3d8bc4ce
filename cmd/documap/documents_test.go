package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/documap/documap/pkg/query"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected interface{}
	}{
		{name: "number", raw: "42", expected: float64(42)},
		{name: "boolean", raw: "true", expected: true},
		{name: "quoted string", raw: `"active"`, expected: "active"},
		{name: "bare string", raw: "active", expected: "active"},
		{name: "null", raw: "null", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseValue(tt.raw))
		})
	}
}

func TestParseOrderings(t *testing.T) {
	orderings := parseOrderings([]string{"-age", "name"})
	assert.Equal(t, []query.Ordering{query.Desc("age"), query.Asc("name")}, orderings)
}
