package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRGBToHSB(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name string
		rgb  uint32
		hsb  uint32
	}{
		{"black", 0x000000, 0x000000},
		{"white", 0xffffff, 0x000064},
		{"red", 0xff0000, 0x006464},
		{"green", 0x00ff00, 0x786464},
		{"blue", 0x0000ff, 0xf06464},
		{"yellow", 0xffff00, 0x3c6464},
		{"magenta", 0xff00ff, 0x12c6464},
		{"gray", 0x808080, 0x000032},
	}

	for _, entry := range table {
		assert.Equal(entry.hsb, RGBToHSB(entry.rgb), entry.name)
	}
}
