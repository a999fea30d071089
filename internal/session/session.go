// Package session 把市场存储、订单对账器、订单簿和传输层装配成一个会话，
// 对外暴露读模型的消费接口
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tradeview/gotrade/internal/book"
	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/internal/market"
	"github.com/tradeview/gotrade/internal/orderlist"
	"github.com/tradeview/gotrade/internal/transport"
	"github.com/tradeview/gotrade/internal/transport/ws"
	"github.com/tradeview/gotrade/internal/uibook"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
)

var log = logrus.WithField("component", "session")

// RestAPI 会话依赖的 REST 接口
type RestAPI interface {
	FetchOrderBookSnapshot(ctx context.Context, instrumentID string) ([]transport.LevelsPush, error)
	FetchOpenOrders(ctx context.Context) ([]transport.OrderDto, error)
	FetchInstruments(ctx context.Context) ([]transport.InstrumentDto, error)
	FetchAssets(ctx context.Context) ([]transport.AssetDto, error)
}

// Feed 会话依赖的实时订阅接口
type Feed interface {
	Subscribe(topic string, handler ws.Handler) (*ws.Subscription, error)
	Unsubscribe(sub *ws.Subscription) error
}

// Session 交易会话
// 所有组件由会话创建并互相接线；切换交易对、重连等
// 生命周期操作都经过会话，保证订阅集合与状态机一致
type Session struct {
	rest RestAPI
	feed Feed

	Market *market.Store
	Orders *orderlist.Reconciler
	Book   *book.Book
	Cells  *uibook.Index

	mu        sync.Mutex
	bookSubs  []*ws.Subscription // 当前交易对的两侧推送订阅
	ordersSub *ws.Subscription
	quotesSub *ws.Subscription
}

// New 创建会话并完成组件接线
func New(rest RestAPI, feed Feed) *Session {
	s := &Session{
		rest:   rest,
		feed:   feed,
		Market: market.NewStore(),
		Cells:  uibook.NewIndex(),
	}
	s.Orders = orderlist.New(s.Market.InstrumentExists)
	s.Book = book.New(s.Orders.RestingForInstrument)

	// 自有订单任何变化都要让衍生档位重算，叠加层才会跟上
	s.Orders.OnChanged(func() {
		s.Book.InvalidateOwn()
	})
	return s
}

// LoadReferenceData 拉取资产和交易对参考数据并整体替换
func (s *Session) LoadReferenceData(ctx context.Context) error {
	assetDtos, err := s.rest.FetchAssets(ctx)
	if err != nil {
		return errors.Wrap(err, "拉取资产列表失败")
	}
	instDtos, err := s.rest.FetchInstruments(ctx)
	if err != nil {
		return errors.Wrap(err, "拉取交易对列表失败")
	}

	assets := make([]*domain.Asset, 0, len(assetDtos))
	for _, dto := range assetDtos {
		assets = append(assets, &domain.Asset{
			ID:       dto.ID,
			Name:     dto.Name,
			Accuracy: dto.Accuracy,
		})
	}
	instruments := make([]*domain.Instrument, 0, len(instDtos))
	for _, dto := range instDtos {
		instruments = append(instruments, &domain.Instrument{
			ID:               dto.ID,
			Name:             dto.Name,
			BaseAssetID:      dto.BaseAssetID,
			QuoteAssetID:     dto.QuoteAssetID,
			Accuracy:         dto.Accuracy,
			InvertedAccuracy: dto.InvertedAccuracy,
			QuantityAccuracy: dto.QuantityAccuracy,
		})
	}
	s.Market.Init(instruments, assets)
	return nil
}

// LoadOrders 拉取未成交订单快照并整体替换订单集合
func (s *Session) LoadOrders(ctx context.Context) error {
	dtos, err := s.rest.FetchOpenOrders(ctx)
	if err != nil {
		return errors.Wrap(err, "拉取订单快照失败")
	}
	s.Orders.LoadSnapshot(dtos)
	return nil
}

// Start 建立会话级订阅（订单事件、最优报价）
// 交易对级的订阅由 SelectInstrument 负责
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ordersSub == nil {
		sub, err := s.feed.Subscribe(transport.OrdersTopic, s.handleOrderEvent)
		if err != nil {
			return errors.Wrap(err, "订阅订单事件失败")
		}
		s.ordersSub = sub
	}
	if s.quotesSub == nil {
		sub, err := s.feed.Subscribe(transport.QuotesTopic, s.handleQuote)
		if err != nil {
			return errors.Wrap(err, "订阅报价失败")
		}
		s.quotesSub = sub
	}
	return nil
}

// SelectInstrument 切换当前交易对
//
// 顺序是固定的：先退订旧交易对的推送并等待完成，再重置订单簿、
// 拉取快照、订阅新交易对。退订先行保证旧交易对的迟到推送
// 不会复活到新状态上（订单簿本身还有交易对守卫兜底）
func (s *Session) SelectInstrument(ctx context.Context, instrumentID string) error {
	inst, ok := s.Market.InstrumentByID(instrumentID)
	if !ok {
		return errors.Errorf("未知交易对: %s", instrumentID)
	}

	s.unsubscribeBook()

	s.Cells.Clear(domain.SideBuy)
	s.Cells.Clear(domain.SideSell)
	s.Book.SelectInstrument(inst)
	s.Book.MarkLoading()

	pushes, err := s.rest.FetchOrderBookSnapshot(ctx, instrumentID)
	if err != nil {
		// 快照失败保留已有档位（切换场景下即为空簿），订阅照常建立，
		// 第一条整侧推送就能把簿恢复过来
		log.Warnf("拉取订单簿快照失败: %v", err)
		s.Book.SnapshotFailed()
	} else {
		for _, push := range pushes {
			s.applyLevels(push)
		}
	}

	if err := s.subscribeBook(instrumentID); err != nil {
		return err
	}
	return nil
}

// subscribeBook 订阅交易对两侧的整侧推送
func (s *Session) subscribeBook(instrumentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, isBuy := range []bool{true, false} {
		topic := transport.OrderBookTopic(instrumentID, isBuy)
		sub, err := s.feed.Subscribe(topic, s.handleLevelsPush)
		if err != nil {
			return errors.Wrapf(err, "订阅 %s 失败", topic)
		}
		s.bookSubs = append(s.bookSubs, sub)
	}
	return nil
}

// unsubscribeBook 退订当前交易对的推送并等待退订完成
func (s *Session) unsubscribeBook() {
	s.mu.Lock()
	subs := s.bookSubs
	s.bookSubs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		if err := s.feed.Unsubscribe(sub); err != nil {
			log.Warnf("退订 %s 失败: %v", sub.Topic, err)
		}
	}
}

// handleLevelsPush 实时整侧推送：解码后整侧替换
// 命中失效交易对时 ReplaceSide 自己会丢弃，这里不重复判断
func (s *Session) handleLevelsPush(data json.RawMessage) {
	var push transport.LevelsPush
	if err := json.Unmarshal(data, &push); err != nil {
		log.Warnf("订单簿推送解码失败: %v", err)
		return
	}
	s.applyLevels(push)
}

// applyLevels 把一条整侧推送灌进订单簿
// 命中检测索引先清空，避免重绘间隙里旧矩形命中到新档位
func (s *Session) applyLevels(push transport.LevelsPush) {
	side := domain.SideSell
	if push.IsBuy {
		side = domain.SideBuy
	}
	levels := make([]domain.RawLevel, 0, len(push.Levels))
	for _, pv := range push.Levels {
		levels = append(levels, domain.RawLevel{
			Price:  fixedpoint.FromFloat(pv.Price),
			Volume: fixedpoint.FromFloat(pv.Volume),
			Side:   side,
		})
	}
	s.Cells.Clear(side)
	s.Book.ReplaceSide(push.AssetPair, side, levels)
}

// handleOrderEvent 实时订单事件：解码后交给对账器做状态路由
func (s *Session) handleOrderEvent(data json.RawMessage) {
	var dto transport.OrderDto
	if err := json.Unmarshal(data, &dto); err != nil {
		log.Warnf("订单事件解码失败: %v", err)
		return
	}
	s.Orders.ApplyEvent(dto)
}

// handleQuote 最优报价推送：更新参考数据里的 Bid/Ask，换算跟着最新价走
func (s *Session) handleQuote(data json.RawMessage) {
	var dto transport.QuoteDto
	if err := json.Unmarshal(data, &dto); err != nil {
		log.Warnf("报价推送解码失败: %v", err)
		return
	}
	s.Market.UpdateQuote(dto.AssetPair, fixedpoint.FromFloat(dto.Bid), fixedpoint.FromFloat(dto.Ask))
}

// Convert 在任意两个资产之间换算金额，失败返回 0
func (s *Session) Convert(amount float64, fromID, toID string) float64 {
	return s.Market.Convert(amount, fromID, toID, s.Market.Lookup())
}

// ConvertToBaseAsset 把金额换算到基准资产
func (s *Session) ConvertToBaseAsset(amount float64, fromID string) float64 {
	return s.Market.ConvertToBaseAsset(amount, fromID)
}

// Close 退订全部主题
// 底层连接的关闭由持有 Feed 的一方负责
func (s *Session) Close() {
	s.unsubscribeBook()

	s.mu.Lock()
	ordersSub, quotesSub := s.ordersSub, s.quotesSub
	s.ordersSub, s.quotesSub = nil, nil
	s.mu.Unlock()

	for _, sub := range []*ws.Subscription{ordersSub, quotesSub} {
		if sub == nil {
			continue
		}
		if err := s.feed.Unsubscribe(sub); err != nil {
			log.Warnf("退订 %s 失败: %v", sub.Topic, err)
		}
	}
}
