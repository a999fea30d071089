// Package uibook 维护渲染层的命中测试缓存
// 把屏幕矩形映射回（价格/数量/深度，方向），供指针交互回填下单表单
package uibook

import (
	"sync"

	"github.com/tradeview/gotrade/internal/domain"
)

// CellKind 档位单元格类型
type CellKind string

const (
	CellPrice  CellKind = "price"
	CellVolume CellKind = "volume"
	CellDepth  CellKind = "depth"
)

// Rect 屏幕矩形（含边界）
type Rect struct {
	X1, Y1 float64
	X2, Y2 float64
}

// Contains 点是否落在矩形内
func (r Rect) Contains(x, y float64) bool {
	return r.X1 <= x && x <= r.X2 && r.Y1 <= y && y <= r.Y2
}

// LevelCell 单个已渲染的单元格
// ParentIndex 是当前聚合档位数组的下标，每次重建时重算，
// 只是查找键，不是对档位的持久引用
type LevelCell struct {
	Kind        CellKind
	Rect        Rect
	Side        domain.Side
	ParentIndex int     // 所属档位在聚合数组中的下标
	CellIndex   int     // 档位内的单元格序号
	Value       float64 // 点击时回填的值
}

// Index 按侧存储单元格的空间缓存
// 对应侧的聚合结果变化时矩形全部失效，必须在重画前清空
type Index struct {
	mu    sync.RWMutex
	cells map[domain.Side][]LevelCell
}

// NewIndex 创建空缓存
func NewIndex() *Index {
	return &Index{
		cells: map[domain.Side][]LevelCell{},
	}
}

// RecordCell 记录单元格
// 以 (ParentIndex, CellIndex) 为键：已存在则替换，否则追加
func (x *Index) RecordCell(cell LevelCell) {
	x.mu.Lock()
	defer x.mu.Unlock()

	cells := x.cells[cell.Side]
	for i := range cells {
		if cells[i].ParentIndex == cell.ParentIndex && cells[i].CellIndex == cell.CellIndex {
			cells[i] = cell
			return
		}
	}
	x.cells[cell.Side] = append(cells, cell)
}

// FindByPoint 线性扫描返回第一个包含该点的单元格
func (x *Index) FindByPoint(side domain.Side, px, py float64) (LevelCell, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, cell := range x.cells[side] {
		if cell.Rect.Contains(px, py) {
			return cell, true
		}
	}
	return LevelCell{}, false
}

// Clear 清空一侧的全部单元格
func (x *Index) Clear(side domain.Side) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.cells[side] = x.cells[side][:0]
}

// Size 返回一侧缓存的单元格数量
func (x *Index) Size(side domain.Side) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.cells[side])
}
