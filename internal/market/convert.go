package market

import (
	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
)

// maxIntermediateHops 路径发现最多经过的中间资产数
// 两层就足以覆盖没有公共计价资产的长尾交易对（例如 LKK→USD→BTC→EUR）
const maxIntermediateHops = 2

// Convert 把 amount 从 fromID 资产换算到 toID 资产
//
// 规则按顺序：
//  1. 同一资产直接返回原值
//  2. 直接交易对 from/to：卖出 from，乘最优买价
//  3. 反向交易对 to/from：除以最优卖价
//  4. 无直接交易对：经中间资产分两段换算，递归最多两层；
//     所需报价为零的一段视为不可用，继续尝试下一条路径
//  5. 找不到路径返回 0——换算失败是合法的业务值，调用方照常渲染
//
// 路径选择按参考数据加载顺序取第一条可用路径，保证结果可复现
func (s *Store) Convert(amount float64, fromID, toID string, lookup InstrumentLookup) float64 {
	if fromID == toID {
		return amount
	}

	s.mu.RLock()
	_, fromKnown := s.assetByID[fromID]
	_, toKnown := s.assetByID[toID]
	s.mu.RUnlock()

	if !fromKnown || !toKnown {
		return 0
	}

	rate := s.rate(fromID, toID, lookup, maxIntermediateHops)
	if rate.IsZero() {
		return 0
	}
	return fixedpoint.FromFloat(amount).Mul(rate).Float64()
}

// ConvertToBaseAsset 把 amount 从 fromID 换算到基准资产（余额展示用）
func (s *Store) ConvertToBaseAsset(amount float64, fromID string) float64 {
	s.mu.RLock()
	baseID := s.baseAssetID
	s.mu.RUnlock()
	if baseID == "" {
		return 0
	}
	return s.Convert(amount, fromID, baseID, s.Lookup())
}

// rate 返回 1 单位 fromID 折算成 toID 的汇率，解析失败返回零值
// depth 是剩余可用的中间资产层数
func (s *Store) rate(fromID, toID string, lookup InstrumentLookup, depth int) fixedpoint.Value {
	if fromID == toID {
		return fixedpoint.One()
	}

	// 先找直接/反向交易对；报价为零的一侧不可用
	for _, inst := range s.snapshotInstruments() {
		resolved := s.resolve(inst.ID, lookup)
		if resolved == nil {
			continue
		}
		if resolved.BaseAssetID == fromID && resolved.QuoteAssetID == toID && resolved.Bid.IsPositive() {
			return resolved.Bid
		}
		if resolved.BaseAssetID == toID && resolved.QuoteAssetID == fromID && resolved.Ask.IsPositive() {
			return fixedpoint.One().Div(resolved.Ask)
		}
	}

	if depth <= 0 {
		return fixedpoint.Zero()
	}

	// 经中间资产：与 from 配对的每个资产都是候选，
	// 第一段必须单跳可达，第二段允许继续递归
	for _, inst := range s.snapshotInstruments() {
		resolved := s.resolve(inst.ID, lookup)
		if resolved == nil {
			continue
		}
		mid := resolved.OtherAsset(fromID)
		if mid == "" || mid == toID {
			continue
		}
		first := s.rate(fromID, mid, lookup, 0)
		if first.IsZero() {
			continue
		}
		rest := s.rate(mid, toID, lookup, depth-1)
		if rest.IsZero() {
			continue
		}
		return first.Mul(rest)
	}

	return fixedpoint.Zero()
}

// snapshotInstruments 返回加载顺序的交易对切片
func (s *Store) snapshotInstruments() []*domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Instrument, len(s.instruments))
	copy(out, s.instruments)
	return out
}

// resolve 通过 lookup 取交易对的最新报价；lookup 为 nil 时用存储内数据
func (s *Store) resolve(id string, lookup InstrumentLookup) *domain.Instrument {
	if lookup != nil {
		if inst, ok := lookup(id); ok {
			return inst
		}
		return nil
	}
	if inst, ok := s.InstrumentByID(id); ok {
		return inst
	}
	return nil
}
