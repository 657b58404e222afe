package models

// Pick is one ranked candidate produced by a screening run. Picks are
// immutable once written into the day's payload.
type Pick struct {
	Code             string   `json:"code"`
	Name             string   `json:"name,omitempty"`
	Score            float64  `json:"score"`
	Close            float64  `json:"close"`
	Entry            float64  `json:"entry"`
	Stop             float64  `json:"stop"`
	TakeProfit       float64  `json:"take_profit"`
	Reasons          []string `json:"reasons"`
	BaseScore        float64  `json:"base_score"`
	PriceActionScore float64  `json:"price_action_score"`
	PriceActionTags  []string `json:"price_action_tags"`
	AIScore          float64  `json:"ai_score,omitempty"`
	AISummary        string   `json:"ai_summary,omitempty"`
	AISetupTags      []string `json:"ai_setup_tags,omitempty"`
}

// PicksPayload is the serialized output of a screening run. The "latest"
// pointer file always holds the most recent successful payload.
type PicksPayload struct {
	Asof  string `json:"asof"`
	Picks []Pick `json:"picks"`
}
