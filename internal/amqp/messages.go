package amqp

import (
	"encoding/json"
	"time"

	"tweetcompare/internal/core"
)

// ComparisonViewedMessage records that a comparison was computed for a
// visitor. Post counts are for the selected month of each year.
type ComparisonViewedMessage struct {
	YearA      int       `json:"yearA"`
	YearB      int       `json:"yearB"`
	Month      int       `json:"month"`
	LeftPosts  int       `json:"leftPosts"`
	RightPosts int       `json:"rightPosts"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewComparisonViewedMessage(req core.ComparisonRequest, leftPosts, rightPosts int) *ComparisonViewedMessage {
	return &ComparisonViewedMessage{
		YearA:      req.YearA,
		YearB:      req.YearB,
		Month:      req.Month,
		LeftPosts:  leftPosts,
		RightPosts: rightPosts,
		Timestamp:  time.Now().UTC(),
	}
}

// Request returns the comparison selection carried by the message.
func (m *ComparisonViewedMessage) Request() core.ComparisonRequest {
	return core.ComparisonRequest{YearA: m.YearA, YearB: m.YearB, Month: m.Month}
}

// ToJSON converts the message to JSON bytes
func (m *ComparisonViewedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ComparisonViewedMessageFromJSON decodes a message and validates its month.
func ComparisonViewedMessageFromJSON(data []byte) (*ComparisonViewedMessage, error) {
	var msg ComparisonViewedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Request().Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
