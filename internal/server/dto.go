package server

import (
	"time"

	"github.com/marketpress/marketpress/internal/models"
)

// marketDTO is the wire shape of a published market. Optional numerics are
// pointers so missing values serialize as JSON null rather than a bogus zero.
type marketDTO struct {
	Ticker   string `json:"ticker"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Category string `json:"category"`
	Section  string `json:"section"`
	Status   string `json:"status"`

	YesPrice  *float64 `json:"yes_price"`
	NoPrice   *float64 `json:"no_price"`
	LastPrice *float64 `json:"last_price"`
	Spread    *float64 `json:"spread"`
	MidPrice  *float64 `json:"mid_price"`

	Delta24h        *float64 `json:"delta_24h"`
	Delta7d         *float64 `json:"delta_7d"`
	Volatility      *float64 `json:"volatility"`
	AttentionScore  *float64 `json:"attention_score"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Newsworthiness  *float64 `json:"newsworthiness"`

	Volume       int64 `json:"volume"`
	OpenInterest int64 `json:"open_interest"`

	CloseTime time.Time `json:"close_time"`
}

type editionResponse struct {
	DemoMode  bool                   `json:"demo_mode"`
	UpdatedAt time.Time              `json:"updated_at"`
	Sections  map[string][]marketDTO `json:"sections,omitempty"`
	Markets   []marketDTO            `json:"markets,omitempty"`
}

type sectionResponse struct {
	DemoMode  bool        `json:"demo_mode"`
	UpdatedAt time.Time   `json:"updated_at"`
	Section   string      `json:"section"`
	Markets   []marketDTO `json:"markets"`
}

type marketResponse struct {
	DemoMode  bool       `json:"demo_mode"`
	UpdatedAt time.Time  `json:"updated_at"`
	Market    *marketDTO `json:"market"`
	Headline  string     `json:"headline"`
}

type sparklineResponse struct {
	Ticker string `json:"ticker"`
	Text   string `json:"text"`
	SVG    string `json:"svg"`
	Points int    `json:"points"`
}

type editorResponse struct {
	DemoMode  bool      `json:"demo_mode"`
	UpdatedAt time.Time `json:"updated_at"`
	Query     string    `json:"query,omitempty"`
	Text      string    `json:"text"`
}

func toDTO(m models.Market) marketDTO {
	return marketDTO{
		Ticker:          m.Ticker,
		Title:           m.Title,
		Subtitle:        m.Subtitle,
		Category:        m.Category,
		Section:         m.Section,
		Status:          m.Status,
		YesPrice:        optional(m.YesPrice),
		NoPrice:         optional(m.NoPrice),
		LastPrice:       optional(m.LastPrice),
		Spread:          optional(m.Spread),
		MidPrice:        optional(m.MidPrice),
		Delta24h:        optional(m.Delta24h),
		Delta7d:         optional(m.Delta7d),
		Volatility:      optional(m.Volatility),
		AttentionScore:  optional(m.AttentionScore),
		ConfidenceScore: optional(m.ConfidenceScore),
		Newsworthiness:  optional(m.Newsworthiness),
		Volume:          m.Volume,
		OpenInterest:    m.OpenInterest,
		CloseTime:       m.CloseTime,
	}
}

func toDTOs(markets []models.Market) []marketDTO {
	out := make([]marketDTO, 0, len(markets))
	for _, m := range markets {
		out = append(out, toDTO(m))
	}
	return out
}

// optional maps the in-memory missing marker to nil so it serializes as null.
func optional(v float64) *float64 {
	if models.IsMissing(v) {
		return nil
	}
	return &v
}

func isMissing(v float64) bool {
	return models.IsMissing(v)
}
