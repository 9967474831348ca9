package server

import "encoding/json"

// ConnID 服务端分配的连接标识，生命周期内不变
type ConnID string

// State 玩家或幽魂的状态记录：字段名 → 原始 JSON 值
// 未知字段原样保存与转发
type State map[string]json.RawMessage

// Merge 浅合并：partial 中出现的键覆盖 existing，未出现的键保留
// 不修改任何入参；existing 为 nil 时视为空记录
func Merge(existing, partial State) State {
	out := make(State, len(existing)+len(partial))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Clone 复制记录（值为不可变的原始字节，浅拷贝即可）
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return Merge(nil, s)
}

// MarshalJSON 保证空记录编码为 {} 而不是 null
func (s State) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]json.RawMessage(s))
}
