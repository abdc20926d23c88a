package exporter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"wdipanel/internal/dataprocessing"
)

func TestFormatCell(t *testing.T) {
	// summed at run time; the constant 0.1 + 0.2 is exactly 0.3
	a, b := 0.1, 0.2

	tests := []struct {
		name     string
		input    dataprocessing.Value
		expected string
	}{
		{name: "null", input: dataprocessing.Null(), expected: ""},
		{name: "integer", input: dataprocessing.Number(2010), expected: "2010"},
		{name: "negative", input: dataprocessing.Number(-456), expected: "-456"},
		{name: "shortest round trip", input: dataprocessing.Number(a + b), expected: "0.30000000000000004"},
		{name: "no trailing zeros", input: dataprocessing.Number(78.5), expected: "78.5"},
		{name: "large value", input: dataprocessing.Number(331002651), expected: "331002651"},
		{name: "NaN is null", input: dataprocessing.Number(math.NaN()), expected: ""},
		{name: "text", input: dataprocessing.Text("USA"), expected: "USA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatCell(tt.input))
		})
	}
}
