// Package models defines the persisted entities of the gateway.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel carries the fields every persisted entity shares.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when the caller has not already set one.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ChannelType is the provider dialect a Channel speaks.
type ChannelType string

const (
	ChannelOpenAI           ChannelType = "openai"
	ChannelAnthropic        ChannelType = "anthropic"
	ChannelGemini           ChannelType = "gemini"
	ChannelOpenAICompatible ChannelType = "openai-compatible"
)

// TestMethod is the probe shape a Channel's keys are checked with.
type TestMethod string

const (
	TestMethodBalance TestMethod = "balance"
	TestMethodChat     TestMethod = "chat"
	TestMethodModels   TestMethod = "models"
)

// LoadBalanceStrategy selects among a Channel's active keys.
type LoadBalanceStrategy string

const (
	StrategyRoundRobin LoadBalanceStrategy = "round-robin"
	StrategyWeighted   LoadBalanceStrategy = "weighted"
	StrategyPriority   LoadBalanceStrategy = "priority"
	StrategyLeastUsed  LoadBalanceStrategy = "least-used"
)

// KeyStatus classifies an ApiKey's health.
type KeyStatus string

const (
	KeyStatusActive        KeyStatus = "active"
	KeyStatusInvalid       KeyStatus = "invalid"
	KeyStatusQuotaExceeded KeyStatus = "quota_exceeded"
	KeyStatusDisabled      KeyStatus = "disabled"
	KeyStatusUnknown       KeyStatus = "unknown"
)

// ProxyType is the tunnel protocol a Proxy speaks.
type ProxyType string

const (
	ProxySOCKS5  ProxyType = "socks5"
	ProxySOCKS5H ProxyType = "socks5h"
	ProxyHTTP    ProxyType = "http"
	ProxyHTTPS   ProxyType = "https"
)

// Channel is a configured upstream LLM provider endpoint.
type Channel struct {
	BaseModel
	Name                string              `gorm:"not null" json:"name"`
	Type                ChannelType         `gorm:"not null;index" json:"type"`
	BaseURL             string              `gorm:"not null" json:"baseUrl"`
	TestMethod          TestMethod          `gorm:"not null;default:chat" json:"testMethod"`
	TestModel           string              `json:"testModel,omitempty"`
	ProxyID             *uuid.UUID          `gorm:"type:uuid;index" json:"proxyId,omitempty"`
	LoadBalanceStrategy LoadBalanceStrategy `gorm:"not null;default:round-robin" json:"loadBalanceStrategy"`
	Enabled             bool                `gorm:"not null;default:true" json:"enabled"`

	Keys []ApiKey `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-"`
}

// ApiKey is one credential of one provider under a Channel.
type ApiKey struct {
	BaseModel
	ChannelID     uuid.UUID `gorm:"type:uuid;not null;index" json:"channelId"`
	Key           string    `gorm:"not null" json:"key"`
	Alias         string    `json:"alias,omitempty"`
	Status        KeyStatus `gorm:"not null;default:unknown;index" json:"status"`
	Priority      int       `gorm:"not null;default:50" json:"priority"`
	Weight        int       `gorm:"not null;default:50" json:"weight"`
	Balance       *float64  `json:"balance,omitempty"`
	LastChecked   *time.Time `json:"lastChecked,omitempty"`
	LastUsed      *time.Time `json:"lastUsed,omitempty"`
	ErrorCount    int       `gorm:"not null;default:0" json:"errorCount"`
	TotalRequests int       `gorm:"not null;default:0" json:"totalRequests"`
}

// Proxy is an outbound tunnel configuration.
type Proxy struct {
	BaseModel
	Name     string    `gorm:"not null" json:"name"`
	Type     ProxyType `gorm:"not null" json:"type"`
	Host     string    `gorm:"not null" json:"host"`
	Port     int       `gorm:"not null" json:"port"`
	Username string    `json:"username,omitempty"`
	Password string    `json:"password,omitempty"`
	Enabled  bool       `gorm:"not null;default:true" json:"enabled"`
}

// Token is a gateway-issued bearer credential for the OpenAI-compatible surface.
type Token struct {
	BaseModel
	Name            string                        `gorm:"not null" json:"name"`
	Token           string                        `gorm:"not null;uniqueIndex" json:"token"`
	AllowedChannels datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb" json:"allowedChannels"`
	RateLimit       *int                          `json:"rateLimit,omitempty"`
	Enabled         bool                          `gorm:"not null;default:true" json:"enabled"`
	LastUsed        *time.Time                    `json:"lastUsed,omitempty"`
}

// RequestLog records the outcome of one relay.
type RequestLog struct {
	BaseModel
	Timestamp    time.Time  `gorm:"not null;index" json:"timestamp"`
	TokenID      *uuid.UUID `gorm:"type:uuid;index" json:"tokenId,omitempty"`
	ChannelID    uuid.UUID  `gorm:"type:uuid;index" json:"channelId"`
	KeyID        uuid.UUID  `gorm:"type:uuid;index" json:"keyId"`
	Model        string     `json:"model"`
	Path         string     `json:"path"`
	Method       string     `json:"method"`
	Status       int        `gorm:"index" json:"status"`
	Latency      int64      `json:"latency"`
	InputTokens  *int       `json:"inputTokens,omitempty"`
	OutputTokens *int       `json:"outputTokens,omitempty"`
	Error        string     `json:"error,omitempty"`
	Streaming    bool       `json:"streaming"`
}

// Settings is the singleton configuration row.
type Settings struct {
	BaseModel
	CheckInterval    int64 `gorm:"not null;default:3600000" json:"checkInterval"`
	MaxLogsRetention int64 `gorm:"not null;default:604800000" json:"maxLogsRetention"`
}

// LogFilters composes AND-ed filters for queryLogs.
type LogFilters struct {
	ChannelID *uuid.UUID
	Status    *int
	StartTime *time.Time
	EndTime   *time.Time
	Offset    int
	Limit     int
}
