package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Grid(t *testing.T) {
	kb := NewBuilder().
		Grid(2, Button("a", "1"), Button("b", "2"), Button("c", "3")).
		AddBackButton("back").
		Build()

	assert.Len(t, kb.InlineKeyboard, 3)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	assert.Len(t, kb.InlineKeyboard[1], 1)
	assert.Equal(t, "back", kb.InlineKeyboard[2][0].CallbackData)
}

func TestBuilder_SkipsEmptyRows(t *testing.T) {
	kb := NewBuilder().Row().Grid(0).AddRow(nil).Build()
	assert.Empty(t, kb.InlineKeyboard)
	assert.Empty(t, Empty().InlineKeyboard)
}
