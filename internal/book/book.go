// Package book 维护当前选中交易对的聚合订单簿
// 快照与增量整侧替换汇入这里，按可调桶宽聚合出展示档位
package book

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
	"github.com/tradeview/gotrade/pkg/sigchan"
)

var log = logrus.WithField("component", "book")

// State 订单簿状态机：Empty → Loading → Ready
// 切换交易对回到 Empty；Ready 期间的整侧替换保持 Ready 并触发重算
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

// String 状态名
func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	}
	return "Empty"
}

// RestingProvider 提供指定交易对上用户仍挂着的限价单（叠加层数据源）
type RestingProvider func(instrumentID string) []*domain.UserOrder

// Book 单个交易对的订单簿聚合器
// 所有变更入口经同一把锁串行化；跨交易对的状态互相独立
type Book struct {
	mu         sync.Mutex
	instrument *domain.Instrument
	state      State

	rawBids []domain.RawLevel
	rawAsks []domain.RawLevel
	spanIdx int

	levelsCount int
	resting     RestingProvider

	// 派生档位按版本号缓存，三个输入（原始档位/桶宽/自有订单）
	// 任一变化时版本号递增，读取时才按需重算
	version     uint64
	cachedAsks  []domain.AggregatedLevel
	cachedBids  []domain.AggregatedLevel
	askVersion  uint64
	bidVersion  uint64

	askCallbacks []func()
	bidCallbacks []func()

	// 信号 channel，对应侧需要重画时触发
	AskC *sigchan.Chan
	BidC *sigchan.Chan
}

// New 创建订单簿聚合器
// resting 为 nil 时不做自有订单叠加
func New(resting RestingProvider) *Book {
	return &Book{
		levelsCount: LevelsCount,
		resting:     resting,
		AskC:        sigchan.New(1),
		BidC:        sigchan.New(1),
	}
}

// SetLevelsCount 设置每侧返回的最大档位数，非法值回落到默认值
func (b *Book) SetLevelsCount(n int) {
	b.mu.Lock()
	if n <= 0 {
		n = LevelsCount
	}
	b.levelsCount = n
	b.version++
	b.mu.Unlock()
	b.emitBoth()
}

// SelectInstrument 切换选中的交易对
// 丢弃旧交易对的全部状态，桶宽回到种子档；传 nil 表示清空
func (b *Book) SelectInstrument(inst *domain.Instrument) {
	b.mu.Lock()
	b.instrument = inst
	b.rawBids = nil
	b.rawAsks = nil
	b.spanIdx = 0
	b.state = StateEmpty
	b.version++
	b.mu.Unlock()

	if inst != nil {
		log.Debugf("选中交易对 %s", inst.ID)
	}
	b.emitBoth()
}

// Instrument 返回当前选中的交易对
func (b *Book) Instrument() *domain.Instrument {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instrument
}

// State 返回状态机当前状态
func (b *Book) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// MarkLoading 标记快照加载中
func (b *Book) MarkLoading() {
	b.mu.Lock()
	b.state = StateLoading
	b.mu.Unlock()
}

// SnapshotFailed 快照拉取失败
// 只清加载标记，已有档位保持原样：宁可显示旧数据也不清空
func (b *Book) SnapshotFailed() {
	b.mu.Lock()
	if len(b.rawBids) > 0 || len(b.rawAsks) > 0 {
		b.state = StateReady
	} else {
		b.state = StateEmpty
	}
	b.mu.Unlock()
	log.Warn("订单簿快照拉取失败，保留已显示档位")
}

// ReplaceSide 整侧替换原始档位
//
// 上游契约：每次推送是该侧的完整快照，不做增量合并。
// instrumentID 与当前选中交易对不符时直接丢弃（用户已切走，
// 迟到数据是无操作，不是错误），返回 false
func (b *Book) ReplaceSide(instrumentID string, side domain.Side, levels []domain.RawLevel) bool {
	b.mu.Lock()
	if b.instrument == nil || b.instrument.ID != instrumentID {
		b.mu.Unlock()
		log.Debugf("丢弃已切走交易对 %s 的档位推送", instrumentID)
		return false
	}
	if side == domain.SideBuy {
		b.rawBids = levels
	} else {
		b.rawAsks = levels
	}
	b.state = StateReady
	b.version++
	b.mu.Unlock()

	b.emitSide(side)
	return true
}

// InvalidateOwn 自有订单集合变化，派生档位失效
func (b *Book) InvalidateOwn() {
	b.mu.Lock()
	b.version++
	b.mu.Unlock()
	b.emitBoth()
}

// TopLevels 返回一侧的聚合档位（含自有订单叠加，至多 levelsCount 条）
// 输入没变时直接返回缓存，不重算
func (b *Book) TopLevels(side domain.Side) []domain.AggregatedLevel {
	b.mu.Lock()
	defer b.mu.Unlock()

	if side == domain.SideBuy {
		if b.bidVersion != b.version || b.cachedBids == nil {
			b.cachedBids = b.computeSideLocked(side)
			b.bidVersion = b.version
		}
		return b.cachedBids
	}
	if b.askVersion != b.version || b.cachedAsks == nil {
		b.cachedAsks = b.computeSideLocked(side)
		b.askVersion = b.version
	}
	return b.cachedAsks
}

// computeSideLocked 重算一侧的派生档位，调用方持锁
func (b *Book) computeSideLocked(side domain.Side) []domain.AggregatedLevel {
	isAsk := side == domain.SideSell
	raw := b.rawBids
	if isAsk {
		raw = b.rawAsks
	}

	span := b.spanLocked()
	levels := Aggregate(raw, span, isAsk)
	if b.resting != nil && b.instrument != nil {
		levels = OverlayOwnOrders(levels, b.resting(b.instrument.ID), span, isAsk)
	}
	if len(levels) > b.levelsCount {
		levels = levels[:b.levelsCount]
	}
	if levels == nil {
		levels = []domain.AggregatedLevel{}
	}
	return levels
}

// SeedSpan 种子桶宽 = 10^(-价格精度)
func (b *Book) SeedSpan() fixedpoint.Value {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seedSpanLocked()
}

func (b *Book) seedSpanLocked() fixedpoint.Value {
	if b.instrument == nil {
		return fixedpoint.Zero()
	}
	return fixedpoint.PowerOfTen(-b.instrument.Accuracy)
}

// Span 当前桶宽 = 种子桶宽 * 10^spanIdx，向下取整到价格精度
func (b *Book) Span() fixedpoint.Value {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spanLocked()
}

func (b *Book) spanLocked() fixedpoint.Value {
	if b.instrument == nil {
		return fixedpoint.Zero()
	}
	span := b.seedSpanLocked().Mul(fixedpoint.PowerOfTen(int32(b.spanIdx)))
	return span.PrecisionFloor(b.instrument.Accuracy)
}

// SpanMultiplierIdx 当前桶宽倍率指数
func (b *Book) SpanMultiplierIdx() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spanIdx
}

// MaxMultiplierIdx 桶宽倍率上限
// 由最优卖价相对种子桶宽的量级决定，防止桶宽超出可见价格范围
func (b *Book) MaxMultiplierIdx() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxMultiplierIdxLocked()
}

func (b *Book) maxMultiplierIdxLocked() int {
	bestAsk, ok := b.bestAskLocked()
	if !ok {
		return 0
	}
	seed := b.seedSpanLocked()
	if seed.IsZero() || !bestAsk.IsPositive() {
		return 0
	}
	idx := int(math.Floor(math.Log10(bestAsk.Float64() / seed.Float64())))
	if idx < 0 {
		return 0
	}
	return idx
}

// NextSpan 放大桶宽一档，达到上限时无操作
func (b *Book) NextSpan() {
	b.mu.Lock()
	if b.spanIdx < b.maxMultiplierIdxLocked() {
		b.spanIdx++
		b.version++
	}
	b.mu.Unlock()
	b.emitBoth()
}

// PrevSpan 缩小桶宽一档，到种子档时无操作
func (b *Book) PrevSpan() {
	b.mu.Lock()
	if b.spanIdx > 0 {
		b.spanIdx--
		b.version++
	}
	b.mu.Unlock()
	b.emitBoth()
}

// BestBid 买侧最优价（最高买价）；买侧为空时 ok=false
func (b *Book) BestBid() (fixedpoint.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestBidLocked()
}

func (b *Book) bestBidLocked() (fixedpoint.Value, bool) {
	if len(b.rawBids) == 0 {
		return fixedpoint.Zero(), false
	}
	best := b.rawBids[0].Price
	for _, lvl := range b.rawBids[1:] {
		if lvl.Price.GreaterThan(best) {
			best = lvl.Price
		}
	}
	return best, true
}

// BestAsk 卖侧最优价（最低卖价）；卖侧为空时 ok=false
func (b *Book) BestAsk() (fixedpoint.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestAskLocked()
}

func (b *Book) bestAskLocked() (fixedpoint.Value, bool) {
	if len(b.rawAsks) == 0 {
		return fixedpoint.Zero(), false
	}
	best := b.rawAsks[0].Price
	for _, lvl := range b.rawAsks[1:] {
		if lvl.Price.LessThan(best) {
			best = lvl.Price
		}
	}
	return best, true
}

// Mid 中间价；任一侧为空时 ok=false
func (b *Book) Mid() (fixedpoint.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, okBid := b.bestBidLocked()
	ask, okAsk := b.bestAskLocked()
	if !okBid || !okAsk {
		return fixedpoint.Zero(), false
	}
	return bid.Add(ask).Div(fixedpoint.FromInt(2)), true
}

// Spread 价差 = 最优卖价 - 最优买价；任一侧为空时 ok=false（哨兵值，从不抛错）
func (b *Book) Spread() (fixedpoint.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, okBid := b.bestBidLocked()
	ask, okAsk := b.bestAskLocked()
	if !okBid || !okAsk {
		return fixedpoint.Zero(), false
	}
	return ask.Sub(bid), true
}

// SpreadRelative 相对价差 = 价差 / 最优卖价
func (b *Book) SpreadRelative() (fixedpoint.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, okBid := b.bestBidLocked()
	ask, okAsk := b.bestAskLocked()
	if !okBid || !okAsk || !ask.IsPositive() {
		return fixedpoint.Zero(), false
	}
	return ask.Sub(bid).Div(ask), true
}

// OnLevelsChanged 注册一侧的重画回调
func (b *Book) OnLevelsChanged(side domain.Side, cb func()) {
	if side == domain.SideBuy {
		b.bidCallbacks = append(b.bidCallbacks, cb)
		return
	}
	b.askCallbacks = append(b.askCallbacks, cb)
}

// emitSide 在锁外触发一侧的重画信号
func (b *Book) emitSide(side domain.Side) {
	if side == domain.SideBuy {
		for _, cb := range b.bidCallbacks {
			cb()
		}
		b.BidC.Emit()
		return
	}
	for _, cb := range b.askCallbacks {
		cb()
	}
	b.AskC.Emit()
}

func (b *Book) emitBoth() {
	b.emitSide(domain.SideBuy)
	b.emitSide(domain.SideSell)
}
