package numutil_test

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/internal/numutil"
)

func TestClampIntToInt32(t *testing.T) {
	require.Equal(t, int32(0), numutil.ClampIntToInt32(0))
	require.Equal(t, int32(-123), numutil.ClampIntToInt32(-123))
	require.Equal(t, int32(math.MaxInt32), numutil.ClampIntToInt32(math.MaxInt32))

	if strconv.IntSize == 64 {
		require.Equal(t, int32(math.MaxInt32), numutil.ClampIntToInt32(int(int64(math.MaxInt32)+1)))
		require.Equal(t, int32(math.MinInt32), numutil.ClampIntToInt32(int(int64(math.MinInt32)-1)))
	}
}

func TestPageLimit(t *testing.T) {
	assert.Nil(t, numutil.PageLimit(0))
	assert.Nil(t, numutil.PageLimit(-5))

	limit := numutil.PageLimit(10)
	require.NotNil(t, limit)
	assert.Equal(t, int32(10), *limit)
}
