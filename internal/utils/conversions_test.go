package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stonevalleypartners/auth-library/internal/utils"
)

func TestToString(t *testing.T) {
	require.Equal(t, "abc", utils.ToString("abc"))
	require.Equal(t, "123", utils.ToString(float64(123)))
	require.Equal(t, "123.5", utils.ToString(123.5))
	require.Equal(t, "42", utils.ToString(42))
	require.Equal(t, "42", utils.ToString(int64(42)))
	require.Equal(t, "true", utils.ToString(true))
	require.Equal(t, "", utils.ToString(nil))
	require.Equal(t, "", utils.ToString([]string{"x"}))
}

func TestPtrAndValue(t *testing.T) {
	p := utils.Ptr(5)
	require.Equal(t, 5, utils.Value(p))
	require.Equal(t, 0, utils.Value[int](nil))
}
