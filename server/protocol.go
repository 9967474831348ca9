package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// 事件名（与前端 MultiplayerContext 对齐）
const (
	EventWelcome          = "welcome"
	EventPlayers          = "players"
	EventGhosts           = "ghosts"
	EventUpdate           = "update"
	EventPlayerUpdate     = "player_update"
	EventPlayerDisconnect = "player_disconnect"
	EventMagicBall        = "magicBall"
	EventGhostSpawn       = "ghost_spawn"
	EventGhostUpdate      = "ghost_update"
	EventGhostDead        = "ghost_dead"
	EventHost             = "host"
	EventError            = "error"
)

// 错误码
const (
	CodeBadFrame     = "bad_frame"
	CodeBadPayload   = "bad_payload"
	CodeUnknownEvent = "unknown_event"
	CodeNotHost      = "not_host"
)

// Envelope 所有 WebSocket 文本帧的外层结构
// 示例：{"type":"update","data":{"position":[1,0,0]}}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WelcomeMessage 连接建立后告知客户端自己的 id 与房间
type WelcomeMessage struct {
	ID   string `json:"id"`
	Room string `json:"room"`
}

// PlayerUpdateMessage 广播合并后的完整玩家状态
type PlayerUpdateMessage struct {
	ID    string `json:"id"`
	State State  `json:"state"`
}

// HostMessage 房主变更通知
type HostMessage struct {
	ID string `json:"id"`
}

// ErrorMessage 发回给违规发送方
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// ProtocolError 入站消息校验失败
type ProtocolError struct {
	Code    string
	Event   string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Event, e.Message)
}

func badPayload(event, format string, args ...any) *ProtocolError {
	return &ProtocolError{Code: CodeBadPayload, Event: event, Message: fmt.Sprintf(format, args...)}
}

// encodeEvent 序列化出站帧
func encodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Type: event, Data: data})
}

// DecodeEnvelope 解析入站帧
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, &ProtocolError{Code: CodeBadFrame, Message: "invalid json frame"}
	}
	if env.Type == "" {
		return Envelope{}, &ProtocolError{Code: CodeBadFrame, Message: "missing type"}
	}
	return env, nil
}

type fieldCheck func(json.RawMessage) bool

var playerFields = map[string]fieldCheck{
	"position":  isVec3,
	"rotationY": isNumber,
	"animation": isString,
	"health":    isNumber,
	"deaths":    isNumber,
	"kills":     isNumber,
	"profile":   isProfile,
}

var ghostFields = map[string]fieldCheck{
	"id":        isString,
	"position":  isVec3,
	"rotation":  isQuat,
	"animation": isString,
	"hp":        isNumber,
	"targetId":  isString,
	"vanishing": isBool,
}

var bulletFields = map[string]fieldCheck{
	"position": isVec3,
	"angle":    isNumber,
	"player":   isString,
}

// ParseUpdate 校验 update 负载：必须为对象，已知字段类型正确，其它字段原样保留
func ParseUpdate(data json.RawMessage) (State, error) {
	st, err := decodeObject(EventUpdate, data)
	if err != nil {
		return nil, err
	}
	if err := checkFields(EventUpdate, st, playerFields); err != nil {
		return nil, err
	}
	return st, nil
}

// ParseBullet 校验 magicBall 负载，只要求 id 存在；返回原始字节用于原样转发
func ParseBullet(data json.RawMessage) (json.RawMessage, error) {
	st, err := decodeObject(EventMagicBall, data)
	if err != nil {
		return nil, err
	}
	id, ok := st["id"]
	if !ok || isNull(id) || !(isString(id) || isNumber(id)) || bytes.Equal(bytes.TrimSpace(id), []byte(`""`)) {
		return nil, badPayload(EventMagicBall, "missing id")
	}
	if err := checkFields(EventMagicBall, st, bulletFields); err != nil {
		return nil, err
	}
	return data, nil
}

// ParseGhost 校验 ghost_spawn / ghost_update 负载，返回幽魂 id 与字段
func ParseGhost(event string, data json.RawMessage) (string, State, error) {
	st, err := decodeObject(event, data)
	if err != nil {
		return "", nil, err
	}
	id, err := stringID(event, st["id"])
	if err != nil {
		return "", nil, err
	}
	if err := checkFields(event, st, ghostFields); err != nil {
		return "", nil, err
	}
	return id, st, nil
}

// ParseGhostID 校验 ghost_dead 负载（幽魂 id 字符串）
func ParseGhostID(data json.RawMessage) (string, error) {
	return stringID(EventGhostDead, data)
}

func stringID(event string, raw json.RawMessage) (string, error) {
	var id string
	if len(raw) == 0 || json.Unmarshal(raw, &id) != nil || isNull(raw) {
		return "", badPayload(event, "id must be a string")
	}
	if id == "" {
		return "", badPayload(event, "missing id")
	}
	return id, nil
}

func decodeObject(event string, data json.RawMessage) (State, error) {
	var st State
	if len(data) == 0 || json.Unmarshal(data, &st) != nil || st == nil {
		return nil, badPayload(event, "payload must be an object")
	}
	return st, nil
}

func checkFields(event string, st State, checks map[string]fieldCheck) error {
	for key, raw := range st {
		check, known := checks[key]
		if !known || isNull(raw) {
			continue
		}
		if !check(raw) {
			return badPayload(event, "invalid field %q", key)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isNumber(raw json.RawMessage) bool {
	var f float64
	return !isNull(raw) && json.Unmarshal(raw, &f) == nil
}

func isString(raw json.RawMessage) bool {
	var s string
	return !isNull(raw) && json.Unmarshal(raw, &s) == nil
}

func isBool(raw json.RawMessage) bool {
	var b bool
	return !isNull(raw) && json.Unmarshal(raw, &b) == nil
}

// isVec3 接受 [x,y,z] 或 {x,y,z}
func isVec3(raw json.RawMessage) bool {
	var arr []float64
	if json.Unmarshal(raw, &arr) == nil && !isNull(raw) {
		return len(arr) == 3
	}
	var v struct {
		X, Y, Z *float64
	}
	if json.Unmarshal(raw, &v) != nil {
		return false
	}
	return v.X != nil && v.Y != nil && v.Z != nil
}

// isQuat 接受 [x,y,z,w] 或 {x,y,z,w}
func isQuat(raw json.RawMessage) bool {
	var arr []float64
	if json.Unmarshal(raw, &arr) == nil && !isNull(raw) {
		return len(arr) == 4
	}
	var q struct {
		X, Y, Z, W *float64
	}
	if json.Unmarshal(raw, &q) != nil {
		return false
	}
	return q.X != nil && q.Y != nil && q.Z != nil && q.W != nil
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func isProfile(raw json.RawMessage) bool {
	var p struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if json.Unmarshal(raw, &p) != nil {
		return false
	}
	if p.Color != nil && !hexColor.MatchString(*p.Color) {
		return false
	}
	return true
}
