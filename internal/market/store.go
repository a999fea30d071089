// Package market 持有交易对/资产参考数据，并在任意两个资产之间解析汇率
package market

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/pkg/fixedpoint"
)

var log = logrus.WithField("component", "market")

// InstrumentLookup 按交易对 ID 取交易对（含最优报价）
// 换算时通过它取最新报价，方便测试替换
type InstrumentLookup func(id string) (*domain.Instrument, bool)

// Store 市场参考数据存储
// 会话启动时整体加载，刷新时整体替换，从不原地修改
type Store struct {
	mu             sync.RWMutex
	instruments    []*domain.Instrument // 保持加载顺序，换算路径选择要可复现
	instrumentByID map[string]*domain.Instrument
	assets         []*domain.Asset
	assetByID      map[string]*domain.Asset
	baseAssetID    string
}

// NewStore 创建空的市场存储
func NewStore() *Store {
	return &Store{
		instrumentByID: make(map[string]*domain.Instrument),
		assetByID:      make(map[string]*domain.Asset),
	}
}

// Init 整体替换参考数据
func (s *Store) Init(instruments []*domain.Instrument, assets []*domain.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instruments = make([]*domain.Instrument, 0, len(instruments))
	s.instrumentByID = make(map[string]*domain.Instrument, len(instruments))
	for _, inst := range instruments {
		if inst == nil || inst.ID == "" {
			continue
		}
		s.instruments = append(s.instruments, inst)
		s.instrumentByID[inst.ID] = inst
	}

	s.assets = make([]*domain.Asset, 0, len(assets))
	s.assetByID = make(map[string]*domain.Asset, len(assets))
	for _, asset := range assets {
		if asset == nil || asset.ID == "" {
			continue
		}
		s.assets = append(s.assets, asset)
		s.assetByID[asset.ID] = asset
	}

	log.Debugf("参考数据已加载: %d 个交易对, %d 个资产", len(s.instruments), len(s.assets))
}

// Instruments 返回全部交易对（加载顺序）
func (s *Store) Instruments() []*domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Instrument, len(s.instruments))
	copy(out, s.instruments)
	return out
}

// InstrumentByID 按 ID 查交易对
func (s *Store) InstrumentByID(id string) (*domain.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instrumentByID[id]
	return inst, ok
}

// InstrumentExists 检查交易对是否存在（给订单对账器做校验用）
func (s *Store) InstrumentExists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.instrumentByID[id]
	return ok
}

// AssetByID 按 ID 查资产
func (s *Store) AssetByID(id string) (*domain.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assetByID[id]
	return asset, ok
}

// SetBaseAsset 设置余额展示用的基准资产
func (s *Store) SetBaseAsset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseAssetID = id
}

// BaseAsset 返回基准资产
func (s *Store) BaseAsset() (*domain.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assetByID[s.baseAssetID]
	return asset, ok
}

// UpdateQuote 更新单个交易对的最优报价
func (s *Store) UpdateQuote(instrumentID string, bid, ask fixedpoint.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instrumentByID[instrumentID]; ok {
		inst.Bid = bid
		inst.Ask = ask
	}
}

// Lookup 返回默认的报价查询函数
func (s *Store) Lookup() InstrumentLookup {
	return s.InstrumentByID
}
