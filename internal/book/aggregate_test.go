package book

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
)

func rawLevel(price, volume float64, side domain.Side) domain.RawLevel {
	return domain.RawLevel{
		Price:  fixedpoint.FromFloat(price),
		Volume: fixedpoint.FromFloat(volume),
		Side:   side,
	}
}

// TestAggregate_BucketBoundary 测试桶边界落位
// 卖侧 [{9501,1},{9502,2},{9503.4,1}]、桶宽 1 → 三个桶，
// 9503.4 落入 floor(9503.4/1)*1 = 9503
func TestAggregate_BucketBoundary(t *testing.T) {
	raw := []domain.RawLevel{
		rawLevel(9501, 1, domain.SideSell),
		rawLevel(9502, 2, domain.SideSell),
		rawLevel(9503.4, 1, domain.SideSell),
	}

	levels := Aggregate(raw, fixedpoint.FromFloat(1), true)
	require.Len(t, levels, 3)
	require.Equal(t, "9501", levels[0].BinStart.String())
	require.Equal(t, "9502", levels[0].BinEnd.String())
	require.Equal(t, "1", levels[0].Volume.String())
	require.Equal(t, "9502", levels[1].BinStart.String())
	require.Equal(t, "2", levels[1].Volume.String())
	require.Equal(t, "9503", levels[2].BinStart.String())
	require.Equal(t, "1", levels[2].Volume.String())

	// 桶宽 10：全部并入 9500 一个桶
	levels = Aggregate(raw, fixedpoint.FromFloat(10), true)
	require.Len(t, levels, 1)
	require.Equal(t, "9500", levels[0].BinStart.String())
	require.Equal(t, "4", levels[0].Volume.String())
}

// TestAggregate_Ordering 测试卖侧升序、买侧降序
func TestAggregate_Ordering(t *testing.T) {
	raw := []domain.RawLevel{
		rawLevel(9503, 1, domain.SideSell),
		rawLevel(9501, 1, domain.SideSell),
		rawLevel(9502, 1, domain.SideSell),
	}
	asks := Aggregate(raw, fixedpoint.FromFloat(1), true)
	require.Equal(t, "9501", asks[0].BinStart.String())
	require.Equal(t, "9503", asks[2].BinStart.String())

	rawBids := []domain.RawLevel{
		rawLevel(9498, 1, domain.SideBuy),
		rawLevel(9500, 1, domain.SideBuy),
		rawLevel(9499, 1, domain.SideBuy),
	}
	bids := Aggregate(rawBids, fixedpoint.FromFloat(1), false)
	require.Equal(t, "9500", bids[0].BinStart.String())
	require.Equal(t, "9498", bids[2].BinStart.String())
}

// TestAggregate_DepthCumulative 测试累计深度
func TestAggregate_DepthCumulative(t *testing.T) {
	raw := []domain.RawLevel{
		rawLevel(9501, 1, domain.SideSell),
		rawLevel(9502, 2, domain.SideSell),
		rawLevel(9503, 3, domain.SideSell),
	}
	levels := Aggregate(raw, fixedpoint.FromFloat(1), true)
	require.Equal(t, "1", levels[0].Depth.String())
	require.Equal(t, "3", levels[1].Depth.String())
	require.Equal(t, "6", levels[2].Depth.String())
}

// TestAggregate_VolumeConservation 聚合后的总量必须等于原始总量
// 随机生成档位验证定点数策略不产生累计误差
func TestAggregate_VolumeConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		var raw []domain.RawLevel
		rawTotal := fixedpoint.Zero()
		for i := 0; i < 100; i++ {
			price := 9000 + rng.Float64()*1000
			volume := rng.Float64() * 10
			lvl := rawLevel(price, volume, domain.SideSell)
			raw = append(raw, lvl)
			rawTotal = rawTotal.Add(lvl.Volume)
		}

		for _, span := range []float64{0.01, 0.1, 1, 10, 100} {
			levels := Aggregate(raw, fixedpoint.FromFloat(span), true)
			aggTotal := fixedpoint.Zero()
			for _, lvl := range levels {
				aggTotal = aggTotal.Add(lvl.Volume)
			}
			require.True(t, aggTotal.Equal(rawTotal),
				"span=%v: 聚合总量 %s != 原始总量 %s", span, aggTotal, rawTotal)
			// 最后一个桶的累计深度同样等于总量
			require.True(t, levels[len(levels)-1].Depth.Equal(rawTotal))
		}
	}
}

// TestAggregate_Empty 空输入返回空
func TestAggregate_Empty(t *testing.T) {
	require.Empty(t, Aggregate(nil, fixedpoint.FromFloat(1), true))
}

func restingOrder(id string, price, remaining float64, side domain.Side) *domain.UserOrder {
	p := fixedpoint.FromFloat(price)
	return &domain.UserOrder{
		ID:              id,
		InstrumentID:    "BTCUSD",
		Side:            side,
		Price:           &p,
		Volume:          fixedpoint.FromFloat(remaining),
		RemainingVolume: fixedpoint.FromFloat(remaining),
		Status:          domain.OrderStatusPlaced,
	}
}

// TestOverlayOwnOrders_AttachToExisting 自有挂单落入已有公共桶
func TestOverlayOwnOrders_AttachToExisting(t *testing.T) {
	raw := []domain.RawLevel{
		rawLevel(9501, 1, domain.SideSell),
		rawLevel(9502, 2, domain.SideSell),
	}
	span := fixedpoint.FromFloat(1)
	levels := Aggregate(raw, span, true)

	orders := []*domain.UserOrder{
		restingOrder("a", 9501.3, 0.4, domain.SideSell),
	}
	levels = OverlayOwnOrders(levels, orders, span, true)

	require.Len(t, levels, 2)
	require.Len(t, levels[0].Own, 1)
	require.Equal(t, "a", levels[0].Own[0].OrderID)
	require.Equal(t, "0.4", levels[0].Own[0].Volume.String())
	// 公共量不受叠加影响
	require.Equal(t, "1", levels[0].Volume.String())
	require.Equal(t, "0.4", levels[0].OwnVolumeTotal().String())
}

// TestOverlayOwnOrders_SynthesizesLevel 公共桶不存在时合成零量档位
func TestOverlayOwnOrders_SynthesizesLevel(t *testing.T) {
	raw := []domain.RawLevel{
		rawLevel(9501, 1, domain.SideSell),
		rawLevel(9503, 2, domain.SideSell),
	}
	span := fixedpoint.FromFloat(1)
	levels := Aggregate(raw, span, true)

	orders := []*domain.UserOrder{
		restingOrder("a", 9502.5, 0.4, domain.SideSell),
	}
	levels = OverlayOwnOrders(levels, orders, span, true)

	require.Len(t, levels, 3)
	// 合成档位按排序插入中间
	require.Equal(t, "9502", levels[1].BinStart.String())
	require.True(t, levels[1].Volume.IsZero())
	require.Len(t, levels[1].Own, 1)
	// 公共累计深度不被零量档位改变
	require.Equal(t, "1", levels[1].Depth.String())
	require.Equal(t, "3", levels[2].Depth.String())
}

// TestOverlayOwnOrders_SideFilter 只叠加同方向的挂单
func TestOverlayOwnOrders_SideFilter(t *testing.T) {
	raw := []domain.RawLevel{rawLevel(9501, 1, domain.SideSell)}
	span := fixedpoint.FromFloat(1)

	orders := []*domain.UserOrder{
		restingOrder("buy-1", 9501, 0.4, domain.SideBuy),
		restingOrder("sell-1", 9501, 0.6, domain.SideSell),
	}
	levels := OverlayOwnOrders(Aggregate(raw, span, true), orders, span, true)
	require.Len(t, levels[0].Own, 1)
	require.Equal(t, "sell-1", levels[0].Own[0].OrderID)
}

// TestOverlayOwnOrders_SkipsNonResting 终态与市价单不参与叠加
func TestOverlayOwnOrders_SkipsNonResting(t *testing.T) {
	raw := []domain.RawLevel{rawLevel(9501, 1, domain.SideSell)}
	span := fixedpoint.FromFloat(1)

	filled := restingOrder("x", 9501, 0.4, domain.SideSell)
	filled.Status = domain.OrderStatusFilled
	market := restingOrder("y", 9501, 0.4, domain.SideSell)
	market.Price = nil

	levels := OverlayOwnOrders(Aggregate(raw, span, true), []*domain.UserOrder{filled, market}, span, true)
	require.Empty(t, levels[0].Own)
}
