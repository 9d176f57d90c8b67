package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestChannelModelFields(t *testing.T) {
	ch := Channel{
		Name:                "openai-main",
		Type:                ChannelOpenAI,
		BaseURL:             "https://api.openai.com",
		TestMethod:          TestMethodChat,
		LoadBalanceStrategy: StrategyWeighted,
		Enabled:             true,
	}

	assert.Equal(t, ChannelOpenAI, ch.Type)
	assert.Equal(t, StrategyWeighted, ch.LoadBalanceStrategy)
	assert.True(t, ch.Enabled)
}

func TestApiKeyModelFields(t *testing.T) {
	channelID := uuid.New()
	k := ApiKey{
		ChannelID: channelID,
		Key:       "sk-test",
		Status:    KeyStatusActive,
		Priority:  80,
		Weight:    20,
	}

	assert.Equal(t, channelID, k.ChannelID)
	assert.Equal(t, KeyStatusActive, k.Status)
	assert.Equal(t, 80, k.Priority)
}

func TestProxyModelFields(t *testing.T) {
	p := Proxy{
		Name:    "us-east-socks",
		Type:    ProxySOCKS5,
		Host:    "proxy.example.com",
		Port:    1080,
		Enabled: true,
	}

	assert.Equal(t, ProxySOCKS5, p.Type)
	assert.Equal(t, 1080, p.Port)
}

func TestTokenModelFields(t *testing.T) {
	allowed := datatypeSliceOf(uuid.New(), uuid.New())
	tok := Token{
		Name:            "ci-bot",
		Token:           "kh-abcdef",
		AllowedChannels: allowed,
		Enabled:         true,
	}

	assert.Len(t, tok.AllowedChannels, 2)
	assert.True(t, tok.Enabled)
}

func TestBaseModelBeforeCreateAssignsUUIDWhenAbsent(t *testing.T) {
	b := &BaseModel{}
	err := b.BeforeCreate(&gorm.DB{})
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, b.ID)
}

func TestBaseModelBeforeCreateRespectsExistingID(t *testing.T) {
	want := uuid.New()
	b := &BaseModel{ID: want}
	err := b.BeforeCreate(&gorm.DB{})
	assert.NoError(t, err)
	assert.Equal(t, want, b.ID)
}

func datatypeSliceOf(ids ...uuid.UUID) (out []uuid.UUID) {
	return append(out, ids...)
}
