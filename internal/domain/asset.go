package domain

import "github.com/tradeview/gotrade/pkg/fixedpoint"

// Asset 资产参考数据
// 会话期间不可变，刷新时整体替换
type Asset struct {
	ID       string // 资产 ID
	Name     string // 展示名称
	Accuracy int32  // 展示精度（小数位数）
}

// Instrument 交易对参考数据
// 参考字段不可变；Bid/Ask 是随行情整体替换的最优报价
type Instrument struct {
	ID               string // 交易对 ID（例如 BTCUSD）
	Name             string // 展示名称（例如 BTC/USD）
	BaseAssetID      string // 基础资产 ID
	QuoteAssetID     string // 计价资产 ID
	Accuracy         int32  // 价格精度
	InvertedAccuracy int32  // 反向展示精度
	QuantityAccuracy int32  // 数量精度

	Bid fixedpoint.Value // 最优买价（可能为零，表示一侧无报价）
	Ask fixedpoint.Value // 最优卖价
}

// PairsWith 检查交易对是否包含指定资产
func (i *Instrument) PairsWith(assetID string) bool {
	return i.BaseAssetID == assetID || i.QuoteAssetID == assetID
}

// OtherAsset 返回交易对中与指定资产配对的另一方
// 资产不在交易对中时返回空字符串
func (i *Instrument) OtherAsset(assetID string) string {
	switch assetID {
	case i.BaseAssetID:
		return i.QuoteAssetID
	case i.QuoteAssetID:
		return i.BaseAssetID
	}
	return ""
}
