package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableSetKeepsFirstPosition(t *testing.T) {
	table := NewTable()
	table.Set(":a:", "a.gif")
	table.Set(":b:", "b.gif")
	table.Set(":a:", "a2.gif")

	require.Equal(t, []string{":a:", ":b:"}, table.Keys())
	path, ok := table.Get(":a:")
	require.True(t, ok)
	require.Equal(t, "a2.gif", path)
	require.Equal(t, 2, table.Len())
}

func TestTableMergeOtherWins(t *testing.T) {
	global := NewTable()
	global.Set(":x:", "one/x.gif")
	global.Set(":y:", "one/y.gif")

	channel := NewTable()
	channel.Set(":y:", "two/y.gif")
	channel.Set(":z:", "two/z.gif")

	global.Merge(channel)
	global.Merge(nil)

	require.Equal(t, []string{":x:", ":y:", ":z:"}, global.Keys())
	path, _ := global.Get(":y:")
	require.Equal(t, "two/y.gif", path)
}

func TestTableKeysReturnsCopy(t *testing.T) {
	table := NewTable()
	table.Set(":a:", "a.gif")

	keys := table.Keys()
	keys[0] = "mutated"

	require.Equal(t, []string{":a:"}, table.Keys())
}
