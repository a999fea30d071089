// Package orderlist 维护用户自己的订单集合
// 实时事件和 REST 快照都汇入这里，重复投递与乱序投递下保持一致
package orderlist

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/internal/transport"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
	"github.com/tradeview/gotrade/pkg/sigchan"
)

var log = logrus.WithField("component", "orderlist")

// InstrumentLookup 检查交易对是否存在于当前参考数据
type InstrumentLookup func(instrumentID string) bool

// Reconciler 用户订单的对账器
// 订单身份即 ID，全局唯一；所有变更操作在重复投递下幂等
type Reconciler struct {
	mu     sync.RWMutex
	orders map[string]*domain.UserOrder
	seq    []string // 插入顺序，保证 AllOrders 可复现

	knownInstrument InstrumentLookup

	// 回调在锁外执行，避免死锁
	placedCallbacks    []func(order *domain.UserOrder)
	partialCallbacks   []func(order *domain.UserOrder)
	filledCallbacks    []func(order *domain.UserOrder)
	cancelledCallbacks []func(order *domain.UserOrder)
	changedCallbacks   []func()

	// 信号 channel，集合有任何变化时触发
	C *sigchan.Chan
}

// New 创建对账器
// known 为 nil 时不做交易对校验
func New(known InstrumentLookup) *Reconciler {
	return &Reconciler{
		orders:          make(map[string]*domain.UserOrder),
		knownInstrument: known,
		C:               sigchan.New(1),
	}
}

// LoadSnapshot 用 REST 快照整体替换订单集合
// 只用于连接/重连边界，不要和实时事件并发调用
// 交易对不在参考数据里的订单直接丢弃（过期配置）
func (r *Reconciler) LoadSnapshot(dtos []transport.OrderDto) {
	r.mu.Lock()
	r.orders = make(map[string]*domain.UserOrder, len(dtos))
	r.seq = r.seq[:0]
	for _, dto := range dtos {
		order := r.mapDto(dto)
		if order == nil {
			continue
		}
		if _, exists := r.orders[order.ID]; exists {
			continue
		}
		r.orders[order.ID] = order
		r.seq = append(r.seq, order.ID)
	}
	count := len(r.orders)
	r.mu.Unlock()

	log.Debugf("订单快照已加载: %d 条", count)
	r.notifyChanged()
}

// AddOrder 添加订单
// ID 已存在或交易对未知时不做任何变更并返回 nil（静默失败，不是错误）
func (r *Reconciler) AddOrder(dto transport.OrderDto) *domain.UserOrder {
	r.mu.Lock()
	if _, exists := r.orders[dto.ID]; exists {
		r.mu.Unlock()
		return nil
	}
	order := r.mapDto(dto)
	if order == nil {
		r.mu.Unlock()
		return nil
	}
	r.orders[order.ID] = order
	r.seq = append(r.seq, order.ID)
	snapshot := order.Clone()
	r.mu.Unlock()

	for _, cb := range r.placedCallbacks {
		cb(snapshot)
	}
	r.notifyChanged()
	return snapshot
}

// AddOrUpdate 更新订单；不存在时按 AddOrder 处理
// 只合并 DTO 携带的字段，部分成交只更新剩余数量，不覆盖其他字段
func (r *Reconciler) AddOrUpdate(dto transport.OrderDto) *domain.UserOrder {
	r.mu.Lock()
	order, exists := r.orders[dto.ID]
	if !exists {
		r.mu.Unlock()
		return r.AddOrder(dto)
	}

	if dto.Price != nil {
		p := fixedpoint.FromFloat(*dto.Price)
		order.Price = &p
	}
	if dto.Volume != nil {
		order.Volume = fixedpoint.FromFloat(*dto.Volume)
	}
	if dto.RemainingVolume != nil {
		order.RemainingVolume = fixedpoint.FromFloat(*dto.RemainingVolume)
	}
	if dto.Status != "" {
		if status, ok := domain.ParseOrderStatus(dto.Status); ok {
			order.Status = status
		} else {
			log.Warnf("未知订单状态 %q（订单 %s），忽略", dto.Status, dto.ID)
		}
	}
	// 出锁前先拷贝：集合内的订单还会被后续事件更新
	snapshot := order.Clone()
	r.mu.Unlock()

	for _, cb := range r.partialCallbacks {
		cb(snapshot)
	}
	r.notifyChanged()
	return snapshot
}

// DeleteOrder 删除订单并返回被删除的订单
// 不存在时返回 nil：重放同一个删除事件是无操作，不是错误。
// 调用方用返回值决定是否需要发出用户通知
func (r *Reconciler) DeleteOrder(id string) *domain.UserOrder {
	r.mu.Lock()
	order, exists := r.orders[id]
	if !exists {
		r.mu.Unlock()
		return nil
	}
	delete(r.orders, id)
	for i, oid := range r.seq {
		if oid == id {
			r.seq = append(r.seq[:i], r.seq[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.notifyChanged()
	return order
}

// DeleteAll 删除全部订单；instrumentID 非空时只删该交易对的订单
func (r *Reconciler) DeleteAll(instrumentID string) {
	r.mu.Lock()
	if instrumentID == "" {
		r.orders = make(map[string]*domain.UserOrder)
		r.seq = r.seq[:0]
	} else {
		kept := r.seq[:0]
		for _, id := range r.seq {
			if order := r.orders[id]; order != nil && order.InstrumentID == instrumentID {
				delete(r.orders, id)
				continue
			}
			kept = append(kept, id)
		}
		r.seq = kept
	}
	r.mu.Unlock()

	r.notifyChanged()
}

// AllOrders 按插入顺序返回全部订单的深拷贝
// 只有拷贝能在锁外安全读取：集合内的订单会被后续事件原地更新
func (r *Reconciler) AllOrders() []*domain.UserOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*domain.UserOrder, 0, len(r.seq))
	for _, id := range r.seq {
		if order, ok := r.orders[id]; ok {
			orders = append(orders, order.Clone())
		}
	}
	return orders
}

// RestingForInstrument 返回指定交易对上仍挂着的限价单的深拷贝
// 订单簿叠加层在自己的锁里读字段，拷贝隔离掉并发更新
func (r *Reconciler) RestingForInstrument(instrumentID string) []*domain.UserOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var resting []*domain.UserOrder
	for _, id := range r.seq {
		order, ok := r.orders[id]
		if !ok {
			continue
		}
		if order.InstrumentID == instrumentID && order.IsResting() {
			resting = append(resting, order.Clone())
		}
	}
	return resting
}

// Size 返回订单数量
func (r *Reconciler) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// Exists 检查订单是否存在
func (r *Reconciler) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.orders[id]
	return exists
}

// ApplyEvent 应用上游生命周期事件
// Placed → PartiallyFilled → Filled（终态，移除）
// Placed → Cancelled（终态，移除）
// 未知状态记日志后忽略；重放同一事件是无操作
func (r *Reconciler) ApplyEvent(dto transport.OrderDto) {
	status, ok := domain.ParseOrderStatus(dto.Status)
	if !ok {
		log.Warnf("未知订单事件状态 %q（订单 %s），忽略", dto.Status, dto.ID)
		return
	}

	switch status {
	case domain.OrderStatusCancelled:
		if order := r.DeleteOrder(dto.ID); order != nil {
			for _, cb := range r.cancelledCallbacks {
				cb(order)
			}
		}
	case domain.OrderStatusFilled:
		if order := r.DeleteOrder(dto.ID); order != nil {
			for _, cb := range r.filledCallbacks {
				cb(order)
			}
		}
	case domain.OrderStatusPartiallyFilled:
		r.AddOrUpdate(dto)
	case domain.OrderStatusPlaced:
		r.AddOrder(dto)
	}
}

// OnPlaced 注册挂单回调
func (r *Reconciler) OnPlaced(cb func(order *domain.UserOrder)) {
	r.placedCallbacks = append(r.placedCallbacks, cb)
}

// OnPartiallyFilled 注册部分成交回调
func (r *Reconciler) OnPartiallyFilled(cb func(order *domain.UserOrder)) {
	r.partialCallbacks = append(r.partialCallbacks, cb)
}

// OnFilled 注册成交回调
func (r *Reconciler) OnFilled(cb func(order *domain.UserOrder)) {
	r.filledCallbacks = append(r.filledCallbacks, cb)
}

// OnCancelled 注册取消回调
func (r *Reconciler) OnCancelled(cb func(order *domain.UserOrder)) {
	r.cancelledCallbacks = append(r.cancelledCallbacks, cb)
}

// OnChanged 注册集合变化回调（叠加层失效用）
func (r *Reconciler) OnChanged(cb func()) {
	r.changedCallbacks = append(r.changedCallbacks, cb)
}

func (r *Reconciler) notifyChanged() {
	for _, cb := range r.changedCallbacks {
		cb()
	}
	r.C.Emit()
}

// mapDto 把线格式映射为领域订单
// 交易对未知时返回 nil
func (r *Reconciler) mapDto(dto transport.OrderDto) *domain.UserOrder {
	if dto.ID == "" {
		return nil
	}
	if r.knownInstrument != nil && !r.knownInstrument(dto.AssetPairID) {
		log.Debugf("订单 %s 引用未知交易对 %s，丢弃", dto.ID, dto.AssetPairID)
		return nil
	}

	side, ok := domain.ParseSide(dto.OrderAction)
	if !ok {
		side = domain.SideBuy
	}

	status := domain.OrderStatusPlaced
	if dto.Status != "" {
		if parsed, ok := domain.ParseOrderStatus(dto.Status); ok {
			status = parsed
		} else {
			log.Warnf("未知订单状态 %q（订单 %s），按已挂单处理", dto.Status, dto.ID)
		}
	}

	order := &domain.UserOrder{
		ID:           dto.ID,
		InstrumentID: dto.AssetPairID,
		Side:         side,
		Status:       status,
		CreatedAt:    dto.CreateDateTime,
	}
	if dto.Price != nil {
		p := fixedpoint.FromFloat(*dto.Price)
		order.Price = &p
	}
	if dto.Volume != nil {
		order.Volume = fixedpoint.FromFloat(*dto.Volume)
	}
	if dto.RemainingVolume != nil {
		order.RemainingVolume = fixedpoint.FromFloat(*dto.RemainingVolume)
	} else {
		// 快照里缺省剩余数量按原始数量处理
		order.RemainingVolume = order.Volume
	}
	return order
}
