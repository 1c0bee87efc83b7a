package models

import "time"

type Plan string

const (
	PlanFree     Plan = "free"
	PlanBasic    Plan = "basic"
	PlanPro      Plan = "pro"
	PlanUltimate Plan = "ultimate"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"passwordHash"`
	Plan         Plan      `json:"plan"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PaymentRecord is append-only: written once by the webhook reconciler,
// never mutated afterwards.
type PaymentRecord struct {
	ID                string        `json:"id"`
	ProviderSessionID string        `json:"providerSessionId"`
	CustomerRef       string        `json:"customer"`
	Plan              string        `json:"plan"`
	Status            PaymentStatus `json:"status"`
	CreatedAt         time.Time     `json:"createdAt"`
}

type MessageRecord struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}

type Settings map[string]any
