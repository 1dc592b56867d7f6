package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(""))
	require.Equal(t, Sum("hello"), Sum("hello"))
	require.NotEqual(t, Sum("hello"), Sum("hello "))
	require.Len(t, Sum("anything"), 64)
}
