package server

import "encoding/json"

// Fire 转发 magicBall：不存储，不回发给发送方
func (r *Room) Fire(sender ConnID, bullet json.RawMessage) bool {
	var ok bool
	r.do(func() {
		if _, ok = r.members[sender]; !ok {
			return
		}
		r.metrics.IncBulletsRelayed()
		r.relay(sender, EventMagicBall, bullet)
	})
	return ok
}

// GhostSpawn 以负载整体作为幽魂记录（覆盖同 id 旧记录）并转发
func (r *Room) GhostSpawn(sender ConnID, ghostID string, st State, raw json.RawMessage) error {
	return r.ghostOp(sender, func() {
		r.ghosts[ghostID] = st.Clone()
		r.relay(sender, EventGhostSpawn, raw)
	})
}

// GhostUpdate 合并到幽魂记录（未知 id 视为空记录）并原样转发
func (r *Room) GhostUpdate(sender ConnID, ghostID string, partial State, raw json.RawMessage) error {
	return r.ghostOp(sender, func() {
		r.ghosts[ghostID] = Merge(r.ghosts[ghostID], partial)
		r.relay(sender, EventGhostUpdate, raw)
	})
}

// GhostDeath 删除幽魂记录（不存在时无操作）并转发 id
func (r *Room) GhostDeath(sender ConnID, ghostID string) error {
	return r.ghostOp(sender, func() {
		delete(r.ghosts, ghostID)
		r.broadcast(sender, EventGhostDead, ghostID)
	})
}

// Ghost 查询单个幽魂记录
func (r *Room) Ghost(ghostID string) (State, bool) {
	var st State
	var ok bool
	r.do(func() {
		st, ok = r.ghosts[ghostID]
		st = st.Clone()
	})
	return st, ok
}

// ghostOp 非成员的事件忽略；开启房主校验时拒绝非房主
func (r *Room) ghostOp(sender ConnID, apply func()) error {
	var err error
	r.do(func() {
		if _, ok := r.members[sender]; !ok {
			return
		}
		if r.settings.EnforceGhostHost() && sender != r.host {
			err = ErrNotHost
			return
		}
		r.metrics.IncGhostEvents()
		apply()
	})
	return err
}
