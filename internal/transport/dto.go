// Package transport 定义与交易所交换的线格式（wire DTO）
// 字段名与上游保持完全一致，不要改动
package transport

import "time"

// OrderDto 订单快照/订单事件的线格式
// 实时事件可能只携带部分字段（例如只有 Id + RemainingVolume），
// 可选字段用指针区分“未携带”与“值为零”
type OrderDto struct {
	ID              string    `json:"Id"`
	AssetPairID     string    `json:"AssetPairId"`
	OrderAction     string    `json:"OrderAction"`
	Price           *float64  `json:"Price,omitempty"`
	Status          string    `json:"Status,omitempty"`
	Volume          *float64  `json:"Volume,omitempty"`
	RemainingVolume *float64  `json:"RemainingVolume,omitempty"`
	CreateDateTime  time.Time `json:"CreateDateTime,omitempty"`
}

// PriceVolume 单个档位的线格式
type PriceVolume struct {
	Price  float64 `json:"Price"`
	Volume float64 `json:"Volume"`
}

// LevelsPush 订单簿整侧推送的线格式
// 每次推送是该侧从最优价起、到交易所深度上限为止的完整快照
type LevelsPush struct {
	AssetPair string        `json:"AssetPair"`
	IsBuy     bool          `json:"IsBuy"`
	Levels    []PriceVolume `json:"Levels"`
}

// QuoteDto 最优报价推送的线格式
type QuoteDto struct {
	AssetPair string  `json:"AssetPair"`
	Bid       float64 `json:"Bid"`
	Ask       float64 `json:"Ask"`
}

// AssetDto 资产参考数据的线格式
type AssetDto struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	Accuracy int32  `json:"Accuracy"`
}

// InstrumentDto 交易对参考数据的线格式
type InstrumentDto struct {
	ID               string `json:"Id"`
	Name             string `json:"Name"`
	BaseAssetID      string `json:"BaseAssetId"`
	QuoteAssetID     string `json:"QuoteAssetId"`
	Accuracy         int32  `json:"Accuracy"`
	InvertedAccuracy int32  `json:"InvertedAccuracy"`
	QuantityAccuracy int32  `json:"QuantityAccuracy"`
}
