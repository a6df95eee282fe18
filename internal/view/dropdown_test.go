package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDropdownMarksSelection(t *testing.T) {
	options := []DropdownOption{
		{ID: 1, Name: "Corniche Road"},
		{ID: 2, Name: "Marina Walk"},
	}
	dd := NewDropdown("street_id", "Streets", options, []int64{2})
	assert.False(t, dd.Options[0].Selected)
	assert.True(t, dd.Options[1].Selected)
}
