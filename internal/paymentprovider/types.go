package paymentprovider

import "time"

// Money сумма в валюте.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// CreateChargeRequest запрос на создание счёта.
type CreateChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  Money             `json:"local_price"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

// TimelineEntry смена статуса счёта.
type TimelineEntry struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// Charge счёт у шлюза.
type Charge struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	HostedURL string            `json:"hosted_url"`
	ExpiresAt time.Time         `json:"expires_at"`
	Timeline  []TimelineEntry   `json:"timeline"`
	Metadata  map[string]string `json:"metadata"`
}

type chargeEnvelope struct {
	Data Charge `json:"data"`
}

// Статусы счёта.
const (
	StatusNew       = "NEW"
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusResolved  = "RESOLVED"
	StatusExpired   = "EXPIRED"
	StatusCanceled  = "CANCELED"
)

// Status последний статус из timeline.
func (c *Charge) Status() string {
	if len(c.Timeline) == 0 {
		return StatusNew
	}
	return c.Timeline[len(c.Timeline)-1].Status
}

// Paid сообщает, что оплата получена.
func (c *Charge) Paid() bool {
	s := c.Status()
	return s == StatusCompleted || s == StatusResolved
}
