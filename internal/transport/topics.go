package transport

import "fmt"

// OrdersTopic 用户订单生命周期事件的订阅主题
const OrdersTopic = "orders"

// QuotesTopic 全市场最优报价的订阅主题
const QuotesTopic = "quotes"

// OrderBookTopic 返回指定交易对单侧订单簿的订阅主题
func OrderBookTopic(instrumentID string, isBuy bool) string {
	side := "sell"
	if isBuy {
		side = "buy"
	}
	return fmt.Sprintf("orderbook.%s.%s", instrumentID, side)
}
