package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAddSub_Exact 测试加减法不产生浮点误差
func TestAddSub_Exact(t *testing.T) {
	// 0.1 + 0.2 在 float64 下是 0.30000000000000004
	a := FromFloat(0.1)
	b := FromFloat(0.2)
	require.Equal(t, "0.3", a.Add(b).String())

	// 累加一百次 0.01 应该恰好等于 1
	sum := Zero()
	cent := FromFloat(0.01)
	for i := 0; i < 100; i++ {
		sum = sum.Add(cent)
	}
	require.True(t, sum.Equal(One()))

	require.Equal(t, "9500", FromFloat(9501).Sub(One()).String())
}

// TestDiv_ZeroDivisor 测试除零返回零值而不是 panic
func TestDiv_ZeroDivisor(t *testing.T) {
	require.True(t, One().Div(Zero()).IsZero())
}

// TestFloorToSpan 测试按桶宽取整
func TestFloorToSpan(t *testing.T) {
	cases := []struct {
		price float64
		span  float64
		want  string
	}{
		{9503.4, 1, "9503"},
		{9503.4, 10, "9500"},
		{9503.4, 0.5, "9503"},
		{0.0472, 0.001, "0.047"},
		{9500, 1, "9500"},
	}
	for _, c := range cases {
		got := FromFloat(c.price).FloorToSpan(FromFloat(c.span))
		require.Equal(t, c.want, got.String(), "price=%v span=%v", c.price, c.span)
	}

	// span 为零时退化为原值
	require.Equal(t, "9503.4", FromFloat(9503.4).FloorToSpan(Zero()).String())
}

// TestFixedRound 测试固定精度舍入
func TestFixedRound(t *testing.T) {
	require.Equal(t, "9503.46", FromFloat(9503.456).FixedRound(2).String())
	require.Equal(t, "9503.45", FromFloat(9503.456).PrecisionFloor(2).String())
}

// TestPowerOfTen 测试种子桶宽的构造
func TestPowerOfTen(t *testing.T) {
	require.Equal(t, "0.001", PowerOfTen(-3).String())
	require.Equal(t, "100", PowerOfTen(2).String())
}

// TestComparisons 测试比较操作
func TestComparisons(t *testing.T) {
	a, b := FromFloat(1.5), FromFloat(2.5)
	require.True(t, a.LessThan(b))
	require.True(t, b.GreaterThan(a))
	require.Equal(t, -1, a.Cmp(b))
	require.True(t, FromFloat(2.50).Equal(b))
}
