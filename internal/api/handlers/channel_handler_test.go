package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keyhaven/internal/models"
)

func TestChannelRequestValidateAppliesDefaults(t *testing.T) {
	req := ChannelRequest{
		Name:    "openai-main",
		Type:    models.ChannelOpenAI,
		BaseURL: "https://api.openai.com",
	}

	err := req.validate()

	assert.NoError(t, err)
	assert.Equal(t, models.TestMethodChat, req.TestMethod)
	assert.Equal(t, models.StrategyRoundRobin, req.LoadBalanceStrategy)
}

func TestChannelRequestValidateRejectsMissingName(t *testing.T) {
	req := ChannelRequest{Type: models.ChannelOpenAI, BaseURL: "https://api.openai.com"}
	assert.Error(t, req.validate())
}

func TestChannelRequestValidateRejectsBadType(t *testing.T) {
	req := ChannelRequest{Name: "x", Type: "not-a-type", BaseURL: "https://api.openai.com"}
	assert.Error(t, req.validate())
}

func TestChannelRequestValidateRejectsBadBaseURL(t *testing.T) {
	req := ChannelRequest{Name: "x", Type: models.ChannelOpenAI, BaseURL: "not a url"}
	assert.Error(t, req.validate())
}

func TestChannelRequestValidateRejectsBadTestMethod(t *testing.T) {
	req := ChannelRequest{
		Name:       "x",
		Type:       models.ChannelOpenAI,
		BaseURL:    "https://api.openai.com",
		TestMethod: "bogus",
	}
	assert.Error(t, req.validate())
}

func TestChannelRequestValidateRejectsBadStrategy(t *testing.T) {
	req := ChannelRequest{
		Name:                "x",
		Type:                models.ChannelOpenAI,
		BaseURL:             "https://api.openai.com",
		LoadBalanceStrategy: "bogus",
	}
	assert.Error(t, req.validate())
}

func TestChannelRequestValidateKeepsExplicitTestMethodAndStrategy(t *testing.T) {
	req := ChannelRequest{
		Name:                "x",
		Type:                models.ChannelAnthropic,
		BaseURL:             "https://api.anthropic.com",
		TestMethod:          models.TestMethodModels,
		LoadBalanceStrategy: models.StrategyPriority,
	}
	assert.NoError(t, req.validate())
	assert.Equal(t, models.TestMethodModels, req.TestMethod)
	assert.Equal(t, models.StrategyPriority, req.LoadBalanceStrategy)
}
