package book

import (
	"sort"

	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
)

// LevelsCount 每侧最多返回的聚合档位数
const LevelsCount = 50

// Aggregate 把一侧的原始档位按桶宽聚合
//
// 每个档位落入 floor(price/span)*span 的桶，桶内数量求和。
// 卖侧按价格升序（离最优卖价近的在前），买侧降序。
// 所有运算走定点数，保证聚合总量与原始总量精确对账
func Aggregate(raw []domain.RawLevel, span fixedpoint.Value, isAsk bool) []domain.AggregatedLevel {
	if len(raw) == 0 {
		return nil
	}

	byBin := make(map[string]int, len(raw))
	levels := make([]domain.AggregatedLevel, 0, len(raw))

	for _, lvl := range raw {
		bin := lvl.Price.FloorToSpan(span)
		key := bin.String()
		if idx, ok := byBin[key]; ok {
			levels[idx].Volume = levels[idx].Volume.Add(lvl.Volume)
			continue
		}
		byBin[key] = len(levels)
		levels = append(levels, domain.AggregatedLevel{
			BinStart: bin,
			BinEnd:   bin.Add(span),
			Volume:   lvl.Volume,
		})
	}

	sortLevels(levels, isAsk)
	recomputeDepth(levels)
	return levels
}

// OverlayOwnOrders 把用户自己的挂单叠加到聚合档位上
//
// 订单价格按同样的取整规则落桶；桶内没有公共档位时合成一个
// 公共量为零的档位，保证自己的挂单始终可见。
// 只有与该侧方向一致的挂单参与叠加（卖侧叠卖单，买侧叠买单）
func OverlayOwnOrders(levels []domain.AggregatedLevel, orders []*domain.UserOrder, span fixedpoint.Value, isAsk bool) []domain.AggregatedLevel {
	side := domain.SideBuy
	if isAsk {
		side = domain.SideSell
	}

	changed := false
	for _, order := range orders {
		if order == nil || order.Side != side || !order.IsResting() {
			continue
		}
		bin := order.Price.FloorToSpan(span)

		idx := -1
		for i := range levels {
			if levels[i].BinStart.Equal(bin) {
				idx = i
				break
			}
		}
		if idx < 0 {
			levels = append(levels, domain.AggregatedLevel{
				BinStart: bin,
				BinEnd:   bin.Add(span),
				Volume:   fixedpoint.Zero(),
			})
			idx = len(levels) - 1
			changed = true
		}
		levels[idx].Own = append(levels[idx].Own, domain.OwnVolume{
			OrderID: order.ID,
			Volume:  order.RemainingVolume,
		})
	}

	if changed {
		sortLevels(levels, isAsk)
		recomputeDepth(levels)
	}
	return levels
}

// sortLevels 按离最优价的距离排序：卖侧升序、买侧降序
func sortLevels(levels []domain.AggregatedLevel, isAsk bool) {
	sort.SliceStable(levels, func(i, j int) bool {
		if isAsk {
			return levels[i].BinStart.LessThan(levels[j].BinStart)
		}
		return levels[i].BinStart.GreaterThan(levels[j].BinStart)
	})
}

// recomputeDepth 重算从最优价起的累计公共挂单量
func recomputeDepth(levels []domain.AggregatedLevel) {
	depth := fixedpoint.Zero()
	for i := range levels {
		depth = depth.Add(levels[i].Volume)
		levels[i].Depth = depth
	}
}
