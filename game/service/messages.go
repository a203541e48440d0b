package service

import (
	"errors"
	"fmt"

	"github.com/wricardo/cardguess/game/engine"
)

var (
	ErrShuttingDown  = errors.New("game service is shutting down")
	ErrAssetNotFound = errors.New("asset not found")
)

// Messages holds the user-visible texts. Fields with verbs are format strings.
type Messages struct {
	ScopeNotAllowed string `json:"scope_not_allowed"`
	AlreadyActive   string `json:"already_active"`
	PoolEmpty       string `json:"pool_empty"`
	ImageFailed     string `json:"image_failed"`
	NoActiveRound   string `json:"no_active_round"`
	Unavailable     string `json:"unavailable"`
	Internal        string `json:"internal"`

	Prompt    string `json:"prompt"`    // timeout seconds, attempts
	Wrong     string `json:"wrong"`     // remaining attempts
	Correct   string `json:"correct"`   // winner, answer
	Exhausted string `json:"exhausted"` // answer
	TimedOut  string `json:"timed_out"` // answer
}

// DefaultMessages returns the built-in message set
func DefaultMessages() *Messages {
	return &Messages{
		ScopeNotAllowed: "本群未开通猜卡面游戏功能",
		AlreadyActive:   "当前已有游戏在进行中，请稍后再试",
		PoolEmpty:       "游戏资源加载失败，请联系管理员",
		ImageFailed:     "图片处理失败，请重试",
		NoActiveRound:   "当前没有进行中的游戏",
		Unavailable:     "游戏服务正在关闭，请稍后再试",
		Internal:        "服务器内部错误，请稍后再试",

		Prompt:    "猜猜这是谁的卡面？%d 秒内作答，共 %d 次机会",
		Wrong:     "答错了，还剩 %d 次机会",
		Correct:   "恭喜 %s 答对了！答案是 %s",
		Exhausted: "机会已用完，答案是 %s",
		TimedOut:  "时间到！答案是 %s",
	}
}

// ForError converts a game-flow error into the single message shown to the requester
func (m *Messages) ForError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrScopeNotAllowed):
		return m.ScopeNotAllowed
	case errors.Is(err, engine.ErrRoundAlreadyActive):
		return m.AlreadyActive
	case errors.Is(err, engine.ErrPoolEmpty):
		return m.PoolEmpty
	case errors.Is(err, engine.ErrAssetUnreadable):
		return m.ImageFailed
	case errors.Is(err, engine.ErrNoActiveRound), errors.Is(err, engine.ErrRoundNotActive):
		return m.NoActiveRound
	case errors.Is(err, ErrShuttingDown):
		return m.Unavailable
	default:
		return m.Internal
	}
}

// ForOutcome renders the message for a round after a guess or timeout
func (m *Messages) ForOutcome(info *engine.RoundInfo) string {
	switch info.State {
	case engine.Resolved:
		return fmt.Sprintf(m.Correct, info.Winner, info.Answer)
	case engine.Exhausted:
		return fmt.Sprintf(m.Exhausted, info.Answer)
	case engine.TimedOut:
		return fmt.Sprintf(m.TimedOut, info.Answer)
	default:
		return fmt.Sprintf(m.Wrong, info.Remaining)
	}
}

// UserMessage converts err into a user-visible message using the default texts
func UserMessage(err error) string {
	return DefaultMessages().ForError(err)
}

func eventFor(state engine.State) Event {
	switch state {
	case engine.Resolved:
		return EventCorrect
	case engine.Exhausted:
		return EventExhausted
	case engine.TimedOut:
		return EventTimedOut
	default:
		return EventWrong
	}
}
