// Package fixedpoint 提供精确的定点数运算
// 所有涉及价格/数量的计算都必须经过本包，避免二进制浮点误差累积
package fixedpoint

import (
	"github.com/shopspring/decimal"
)

// Value 定点数值对象（不可变）
// 内部使用十进制精确表示，加减乘除不丢精度
type Value struct {
	d decimal.Decimal
}

// Zero 返回零值
func Zero() Value {
	return Value{}
}

// One 返回 1
func One() Value {
	return Value{d: decimal.New(1, 0)}
}

// FromFloat 从浮点数创建定点数
func FromFloat(f float64) Value {
	return Value{d: decimal.NewFromFloat(f)}
}

// FromInt 从整数创建定点数
func FromInt(i int64) Value {
	return Value{d: decimal.NewFromInt(i)}
}

// FromString 从字符串创建定点数（例如 "9501.5"）
func FromString(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, err
	}
	return Value{d: d}, nil
}

// PowerOfTen 返回 10^exp（exp 可以为负，例如 -3 表示 0.001）
func PowerOfTen(exp int32) Value {
	return Value{d: decimal.New(1, exp)}
}

// Add 加法
func (v Value) Add(o Value) Value {
	return Value{d: v.d.Add(o.d)}
}

// Sub 减法
func (v Value) Sub(o Value) Value {
	return Value{d: v.d.Sub(o.d)}
}

// Mul 乘法
func (v Value) Mul(o Value) Value {
	return Value{d: v.d.Mul(o.d)}
}

// Div 除法
// 除数为零时返回零值，调用方把零视为“无法换算”的业务结果
func (v Value) Div(o Value) Value {
	if o.d.IsZero() {
		return Value{}
	}
	return Value{d: v.d.Div(o.d)}
}

// FixedRound 四舍五入到 places 位小数
func (v Value) FixedRound(places int32) Value {
	return Value{d: v.d.Round(places)}
}

// PrecisionFloor 向下取整到 places 位小数
func (v Value) PrecisionFloor(places int32) Value {
	return Value{d: v.d.RoundFloor(places)}
}

// FloorToSpan 按桶宽向下取整：floor(v / span) * span
// span 为零时返回原值（退化为无聚合）
func (v Value) FloorToSpan(span Value) Value {
	if span.d.IsZero() {
		return v
	}
	return Value{d: v.d.Div(span.d).Floor().Mul(span.d)}
}

// Float64 转换为浮点数（仅用于展示层出口）
func (v Value) Float64() float64 {
	f, _ := v.d.Float64()
	return f
}

// String 十进制字符串表示
func (v Value) String() string {
	return v.d.String()
}

// IsZero 是否为零
func (v Value) IsZero() bool {
	return v.d.IsZero()
}

// IsPositive 是否大于零
func (v Value) IsPositive() bool {
	return v.d.IsPositive()
}

// Cmp 比较：v < o 返回 -1，相等返回 0，v > o 返回 1
func (v Value) Cmp(o Value) int {
	return v.d.Cmp(o.d)
}

// Equal 是否相等
func (v Value) Equal(o Value) bool {
	return v.d.Equal(o.d)
}

// GreaterThan 是否大于
func (v Value) GreaterThan(o Value) bool {
	return v.d.GreaterThan(o.d)
}

// LessThan 是否小于
func (v Value) LessThan(o Value) bool {
	return v.d.LessThan(o.d)
}
