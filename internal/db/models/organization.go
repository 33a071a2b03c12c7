package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier representa o plano de assinatura de uma organização
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierStarter    SubscriptionTier = "starter"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

// Organization representa um tenant: o limite de cobrança e isolamento
// que possui sessões, mensagens e a configuração de webhook do CRM.
type Organization struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	OwnerUserID         string           `json:"owner_user_id" db:"owner_user_id"`
	Tier                SubscriptionTier `json:"tier" db:"tier"`
	MaxAccounts         int              `json:"max_accounts" db:"max_accounts"`
	MaxMessagesPerMonth int              `json:"max_messages_per_month" db:"max_messages_per_month"`
	WebhookURL          *string          `json:"webhook_url,omitempty" db:"webhook_url"`
	CrmAPIKey           *string          `json:"-" db:"crm_api_key"`
	CrmLocationID       *string          `json:"crm_location_id,omitempty" db:"crm_location_id"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// HasWebhook indica se a organização tem webhook de CRM configurado
func (o *Organization) HasWebhook() bool {
	return o.WebhookURL != nil && *o.WebhookURL != ""
}
