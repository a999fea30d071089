package market

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
)

func instrument(id, base, quote string, bid, ask float64) *domain.Instrument {
	inst := &domain.Instrument{
		ID:           id,
		BaseAssetID:  base,
		QuoteAssetID: quote,
	}
	if bid > 0 {
		inst.Bid = fixedpoint.FromFloat(bid)
	}
	if ask > 0 {
		inst.Ask = fixedpoint.FromFloat(ask)
	}
	return inst
}

func asset(id string) *domain.Asset {
	return &domain.Asset{ID: id, Name: id, Accuracy: 8}
}

// newTestStore 构造与换算相关的典型市场：
// 有单侧报价缺失的交易对，用于验证零价路径回避
func newTestStore() *Store {
	s := NewStore()
	s.Init(
		[]*domain.Instrument{
			instrument("BTCUSD", "BTC", "USD", 9500, 9600),
			instrument("USDRUB", "USD", "RUB", 55, 58),
			instrument("LKKUSD", "LKK", "USD", 0.05, 0.06),
			instrument("BTCEUR", "BTC", "EUR", 5800, 0),
			instrument("EURUSD", "EUR", "USD", 1.1, 0),
			instrument("LKKEUR", "LKK", "EUR", 0, 100),
		},
		[]*domain.Asset{
			asset("BTC"), asset("USD"), asset("RUB"),
			asset("LKK"), asset("TEST"), asset("EUR"),
		},
	)
	return s
}

// TestConvert_SameAsset 同一资产原样返回
func TestConvert_SameAsset(t *testing.T) {
	s := newTestStore()
	require.Equal(t, 1.0, s.Convert(1, "BTC", "BTC", s.Lookup()))
	require.Equal(t, 42.5, s.Convert(42.5, "TEST", "TEST", s.Lookup()))
}

// TestConvert_UnknownAsset 资产不存在返回 0
func TestConvert_UnknownAsset(t *testing.T) {
	s := newTestStore()
	require.Equal(t, 0.0, s.Convert(1, "BTC", "FOO", s.Lookup()))
	require.Equal(t, 0.0, s.Convert(1, "FOO", "BTC", s.Lookup()))
}

// TestConvert_NoPath 没有任何交易对可达返回 0
func TestConvert_NoPath(t *testing.T) {
	s := newTestStore()
	require.Equal(t, 0.0, s.Convert(1, "BTC", "TEST", s.Lookup()))
	require.Equal(t, 0.0, s.Convert(1, "TEST", "BTC", s.Lookup()))
}

// TestConvert_DirectAndHops 直接、反向与多跳换算
func TestConvert_DirectAndHops(t *testing.T) {
	s := newTestStore()

	// 直接交易对：乘最优买价
	require.InDelta(t, 9500, s.Convert(1, "BTC", "USD", s.Lookup()), 1e-9)

	// 一层中间资产：BTC → USD → RUB
	require.InDelta(t, 1.5*9500*55, s.Convert(1.5, "BTC", "RUB", s.Lookup()), 1e-6)

	// 直接 + 反向组合：LKK → USD → BTC
	require.InDelta(t, 20000*0.05*(1.0/9600), s.Convert(20000, "LKK", "BTC", s.Lookup()), 1e-9)

	// 两段都是反向：RUB → USD → LKK
	require.InDelta(t, 10000*(1.0/58)*(1.0/0.06), s.Convert(10000, "RUB", "LKK", s.Lookup()), 1e-6)
}

// TestConvert_AvoidsZeroRate 所需报价为零的路径要被绕开
func TestConvert_AvoidsZeroRate(t *testing.T) {
	s := newTestStore()

	// BTCEUR 没有卖价，EUR → BTC 不能走反向交易对，改走 EUR → USD → BTC
	require.InDelta(t, 1000*1.1*(1.0/9600), s.Convert(1000, "EUR", "BTC", s.Lookup()), 1e-9)

	// LKKEUR 没有买价，LKK → EUR 要经两个中间资产：LKK → USD → BTC → EUR
	require.InDelta(t, 1000*0.05*(1.0/9600)*5800, s.Convert(1000, "LKK", "EUR", s.Lookup()), 1e-6)

	// 反方向可以直接用 LKKEUR 的卖价
	require.InDelta(t, 1000*(1.0/100), s.Convert(1000, "EUR", "LKK", s.Lookup()), 1e-9)
}

// TestConvert_Composition 两跳换算等于两次单跳换算的组合
func TestConvert_Composition(t *testing.T) {
	s := newTestStore()

	direct := s.Convert(1.5, "BTC", "RUB", s.Lookup())
	composed := s.Convert(s.Convert(1.5, "BTC", "USD", s.Lookup()), "USD", "RUB", s.Lookup())
	require.InDelta(t, composed, direct, 1e-9)
}

// TestConvert_InverseRule 反向交易对用 1/ask
func TestConvert_InverseRule(t *testing.T) {
	s := newTestStore()
	require.InDelta(t, 1.0/9600, s.Convert(1, "USD", "BTC", s.Lookup()), 1e-12)
}

// TestConvert_LookupOverride 测试通过 lookup 注入最新报价
func TestConvert_LookupOverride(t *testing.T) {
	s := newTestStore()

	fresh := instrument("BTCUSD", "BTC", "USD", 10000, 10100)
	lookup := func(id string) (*domain.Instrument, bool) {
		if id == "BTCUSD" {
			return fresh, true
		}
		return s.InstrumentByID(id)
	}
	require.InDelta(t, 10000, s.Convert(1, "BTC", "USD", lookup), 1e-9)
}

// TestUpdateQuote 报价更新后换算结果随之变化
func TestUpdateQuote(t *testing.T) {
	s := newTestStore()
	s.UpdateQuote("BTCUSD", fixedpoint.FromFloat(9700), fixedpoint.FromFloat(9800))
	require.InDelta(t, 9700, s.Convert(1, "BTC", "USD", s.Lookup()), 1e-9)
}

// TestConvertToBaseAsset 基准资产换算
func TestConvertToBaseAsset(t *testing.T) {
	s := newTestStore()

	// 未设置基准资产时返回 0
	require.Equal(t, 0.0, s.ConvertToBaseAsset(1, "BTC"))

	s.SetBaseAsset("USD")
	base, ok := s.BaseAsset()
	require.True(t, ok)
	require.Equal(t, "USD", base.ID)
	require.InDelta(t, 9500, s.ConvertToBaseAsset(1, "BTC"), 1e-9)
}

// TestInit_Replace 参考数据整体替换
func TestInit_Replace(t *testing.T) {
	s := newTestStore()
	require.True(t, s.InstrumentExists("BTCUSD"))

	s.Init([]*domain.Instrument{instrument("ETHUSD", "ETH", "USD", 300, 301)},
		[]*domain.Asset{asset("ETH"), asset("USD")})

	require.False(t, s.InstrumentExists("BTCUSD"))
	require.True(t, s.InstrumentExists("ETHUSD"))
	_, ok := s.AssetByID("BTC")
	require.False(t, ok)
}
