package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// OrderCreatedEvent is the only event that credits a user.
	OrderCreatedEvent = "order_created"

	msgMissingMeta   = "Event body is missing the 'meta' property."
	msgMissingData   = "Event body is missing the 'data' property."
	msgInvalidCustom = "Invalid user_id or credits in custom_data"
)

// WebhookMeta is the envelope metadata Lemon Squeezy puts on every event.
type WebhookMeta struct {
	EventName  string          `json:"event_name"`
	TestMode   bool            `json:"test_mode"`
	CustomData json.RawMessage `json:"custom_data,omitempty"`
}

// WebhookPayload is the parsed shape of a webhook body. Data stays raw since
// only a few event kinds look inside it.
type WebhookPayload struct {
	Meta *WebhookMeta    `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// HasMeta reports whether the body carried a meta object.
func (p *WebhookPayload) HasMeta() bool {
	return p != nil && p.Meta != nil
}

// HasData reports whether the body carried a non-null data member.
func (p *WebhookPayload) HasData() bool {
	if p == nil || len(p.Data) == 0 {
		return false
	}
	return strings.TrimSpace(string(p.Data)) != "null"
}

// EventName returns meta.event_name or "" when there is no meta.
func (p *WebhookPayload) EventName() string {
	if !p.HasMeta() {
		return ""
	}
	return p.Meta.EventName
}

// PayloadKind tags the shape of a parsed webhook body.
type PayloadKind int

const (
	PayloadValid PayloadKind = iota
	PayloadMissingMeta
	PayloadMissingData
)

// Kind classifies the payload. Missing meta wins over missing data.
func (p *WebhookPayload) Kind() PayloadKind {
	switch {
	case !p.HasMeta():
		return PayloadMissingMeta
	case !p.HasData():
		return PayloadMissingData
	default:
		return PayloadValid
	}
}

// IsOrderCreated reports whether the event should credit a user.
func (p *WebhookPayload) IsOrderCreated() bool {
	return strings.HasPrefix(p.EventName(), OrderCreatedEvent)
}

// ParseWebhookPayload decodes a raw body. It only fails on malformed JSON;
// absent members are reported through HasMeta and HasData.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid webhook body: %v", ErrValidation, err)
	}
	return &p, nil
}

// OrderCustomData is the purchase context attached at checkout time.
type OrderCustomData struct {
	UserID  uint
	Credits int
}

// ParseOrderCustomData reads meta.custom_data. Values may arrive as JSON
// strings or numbers; both must parse to positive integers.
func (p *WebhookPayload) ParseOrderCustomData() (OrderCustomData, error) {
	if !p.HasMeta() || len(p.Meta.CustomData) == 0 {
		return OrderCustomData{}, fmt.Errorf("%w: %s", ErrValidation, msgInvalidCustom)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(p.Meta.CustomData, &raw); err != nil || raw == nil {
		return OrderCustomData{}, fmt.Errorf("%w: %s", ErrValidation, msgInvalidCustom)
	}

	userID, okUser := parseLooseInt(raw["user_id"])
	credits, okCredits := parseLooseInt(raw["credits"])
	if !okUser || !okCredits || userID <= 0 || credits <= 0 {
		return OrderCustomData{}, fmt.Errorf("%w: %s", ErrValidation, msgInvalidCustom)
	}
	return OrderCustomData{UserID: uint(userID), Credits: int(credits)}, nil
}

func parseLooseInt(v json.RawMessage) (int64, bool) {
	if len(v) == 0 {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, false
	}
	i, err := n.Int64()
	return i, err == nil
}
