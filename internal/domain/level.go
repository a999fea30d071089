package domain

import "github.com/tradeview/gotrade/pkg/fixedpoint"

// RawLevel 公共订单簿的原始档位
// 每次推送整侧替换，不做增量合并
type RawLevel struct {
	Price  fixedpoint.Value // 价格
	Volume fixedpoint.Value // 该价位的聚合挂单量
	Side   Side             // 方向
}

// OwnVolume 用户自己的订单在某个桶里的贡献
type OwnVolume struct {
	OrderID string           // 订单 ID
	Volume  fixedpoint.Value // 剩余数量
}

// AggregatedLevel 按桶宽聚合后的档位
// 原始档位、桶宽或自有订单任一变化时整体重算，从不持久化
type AggregatedLevel struct {
	BinStart fixedpoint.Value // 桶起始价（floor(price/span)*span）
	BinEnd   fixedpoint.Value // 桶结束价（BinStart + span）
	Volume   fixedpoint.Value // 桶内公共挂单量合计
	Depth    fixedpoint.Value // 从最优价到本桶的累计公共挂单量
	Own      []OwnVolume      // 用户自己落在本桶的订单
}

// OwnVolumeTotal 返回用户自有订单在本桶的总量
func (l *AggregatedLevel) OwnVolumeTotal() fixedpoint.Value {
	total := fixedpoint.Zero()
	for _, o := range l.Own {
		total = total.Add(o.Volume)
	}
	return total
}
