package model

// Phase 威科夫市场结构阶段
type Phase string

const (
	PhaseNone         Phase = "NONE"
	PhaseAccumulation Phase = "ACCUMULATION"
	PhaseDistribution Phase = "DISTRIBUTION"
	PhaseTrendUp      Phase = "TREND_UP"
	PhaseTrendDown    Phase = "TREND_DOWN"
)

// Event 价格测试区间边界时的威科夫事件
type Event string

const (
	EventNone     Event = ""
	EventSpring   Event = "SPRING"
	EventUpthrust Event = "UPTHRUST"
	EventSOS      Event = "SOS"
	EventSOW      Event = "SOW"
)

// Action 结构分类器给出的动作分级
type Action string

const (
	ActionBuyStrong Action = "BUY_STRONG"
	ActionBuyLight  Action = "BUY_LIGHT"
	ActionReduce    Action = "REDUCE"
	ActionSell      Action = "SELL"
	ActionHold      Action = "HOLD"
)

// Score 动作对应的威科夫得分
func (a Action) Score() float64 {
	switch a {
	case ActionBuyStrong:
		return 2.0
	case ActionBuyLight:
		return 1.0
	case ActionReduce:
		return -1.0
	case ActionSell:
		return -2.0
	default:
		return 0.0
	}
}

// PhaseState 单根 K 线的结构分类结果
type PhaseState struct {
	Phase  Phase
	Event  Event
	Action Action

	// WyckoffScore 动作得分，见 Action.Score
	WyckoffScore float64
	// WyckoffConfirm 是否为底部确认的强买点（Action == BUY_STRONG）
	WyckoffConfirm bool

	// 以下为诊断标记，供理由拼接与独立威科夫策略使用
	DeathCross      bool
	GoldenCross     bool
	BullDivergence  bool
	BearDivergence  bool
	EFIWeakness     bool
	EFIStrength     bool
	ConfirmedBottom bool
	TrendBullish    bool
}

// NeutralPhase 预热期或数据不可用时的中性结果
func NeutralPhase() PhaseState {
	return PhaseState{Phase: PhaseNone, Event: EventNone, Action: ActionHold}
}
