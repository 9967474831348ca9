package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
// parent 非空时同时累加到全局指标
type RoomMetrics struct {
	Joins          int64 // 加入次数
	Leaves         int64 // 离开次数
	UpdatesMerged  int64 // 合并的 update 数
	BulletsRelayed int64 // 转发的 magicBall 数
	GhostEvents    int64 // ghost_* 事件数
	FramesSent     int64 // 成功入队的出站帧
	FramesDropped  int64 // 因队列满或连接已关闭被丢弃的帧
	Violations     int64 // 协议违规次数

	parent *RoomMetrics
}

func newRoomMetrics(parent *RoomMetrics) *RoomMetrics {
	return &RoomMetrics{parent: parent}
}

func (m *RoomMetrics) add(field func(*RoomMetrics) *int64, n int64) {
	for cur := m; cur != nil; cur = cur.parent {
		atomic.AddInt64(field(cur), n)
	}
}

func (m *RoomMetrics) IncJoins() { m.add(func(x *RoomMetrics) *int64 { return &x.Joins }, 1) }
func (m *RoomMetrics) IncLeaves() { m.add(func(x *RoomMetrics) *int64 { return &x.Leaves }, 1) }
func (m *RoomMetrics) IncUpdatesMerged() { m.add(func(x *RoomMetrics) *int64 { return &x.UpdatesMerged }, 1) }
func (m *RoomMetrics) IncBulletsRelayed() { m.add(func(x *RoomMetrics) *int64 { return &x.BulletsRelayed }, 1) }
func (m *RoomMetrics) IncGhostEvents() { m.add(func(x *RoomMetrics) *int64 { return &x.GhostEvents }, 1) }
func (m *RoomMetrics) IncViolations() { m.add(func(x *RoomMetrics) *int64 { return &x.Violations }, 1) }
func (m *RoomMetrics) AddFramesSent(n int64) {
	m.add(func(x *RoomMetrics) *int64 { return &x.FramesSent }, n)
}
func (m *RoomMetrics) AddFramesDropped(n int64) {
	m.add(func(x *RoomMetrics) *int64 { return &x.FramesDropped }, n)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	return map[string]any{
		"joins":           atomic.LoadInt64(&m.Joins),
		"leaves":          atomic.LoadInt64(&m.Leaves),
		"updates_merged":  atomic.LoadInt64(&m.UpdatesMerged),
		"bullets_relayed": atomic.LoadInt64(&m.BulletsRelayed),
		"ghost_events":    atomic.LoadInt64(&m.GhostEvents),
		"frames_sent":     atomic.LoadInt64(&m.FramesSent),
		"frames_dropped":  atomic.LoadInt64(&m.FramesDropped),
		"violations":      atomic.LoadInt64(&m.Violations),
	}
}
