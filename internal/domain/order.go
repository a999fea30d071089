package domain

import (
	"time"

	"github.com/tradeview/gotrade/pkg/fixedpoint"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Opposite 返回对手方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ParseSide 解析线上推送的方向字段
func ParseSide(s string) (Side, bool) {
	switch s {
	case "Buy", "buy":
		return SideBuy, true
	case "Sell", "sell":
		return SideSell, true
	}
	return "", false
}

// OrderStatus 订单状态（规范化后的生命周期状态）
type OrderStatus string

const (
	OrderStatusPlaced          OrderStatus = "Placed"          // 已挂单
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled" // 部分成交
	OrderStatusFilled          OrderStatus = "Filled"          // 已成交（终态，从列表移除）
	OrderStatusCancelled       OrderStatus = "Cancelled"       // 已取消（终态，从列表移除）
)

// ParseOrderStatus 把线上状态值规范化为生命周期状态
// 中间状态 Pending/Processing 按部分成交处理；InOrderBook/Matched 是
// 快照接口的旧写法。未知状态返回 ok=false，调用方记日志后忽略
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch s {
	case "Placed", "InOrderBook":
		return OrderStatusPlaced, true
	case "PartiallyFilled", "Pending", "Processing":
		return OrderStatusPartiallyFilled, true
	case "Filled", "Matched":
		return OrderStatusFilled, true
	case "Cancelled":
		return OrderStatusCancelled, true
	}
	return "", false
}

// IsTerminal 是否为终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// UserOrder 用户自己的订单
// 身份即 ID（交易所分配，全局唯一）
type UserOrder struct {
	ID              string            // 订单 ID
	InstrumentID    string            // 所属交易对
	Side            Side              // 方向
	Price           *fixedpoint.Value // 限价（市价单为 nil）
	Volume          fixedpoint.Value  // 原始数量
	RemainingVolume fixedpoint.Value  // 剩余数量
	Status          OrderStatus       // 状态
	CreatedAt       time.Time         // 创建时间
}

// IsResting 是否还挂在簿上（可以叠加到公共档位）
func (o *UserOrder) IsResting() bool {
	return o.Price != nil &&
		(o.Status == OrderStatusPlaced || o.Status == OrderStatusPartiallyFilled)
}

// Clone 返回订单的深拷贝
func (o *UserOrder) Clone() *UserOrder {
	c := *o
	if o.Price != nil {
		p := *o.Price
		c.Price = &p
	}
	return &c
}
