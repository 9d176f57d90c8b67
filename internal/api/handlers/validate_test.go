package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keyhaven/internal/models"
)

func TestValidateChannelType(t *testing.T) {
	assert.NoError(t, validateChannelType(models.ChannelOpenAI))
	assert.NoError(t, validateChannelType(models.ChannelAnthropic))
	assert.NoError(t, validateChannelType(models.ChannelGemini))
	assert.NoError(t, validateChannelType(models.ChannelOpenAICompatible))
	assert.Error(t, validateChannelType(models.ChannelType("azure")))
}

func TestValidateTestMethod(t *testing.T) {
	assert.NoError(t, validateTestMethod(models.TestMethodChat))
	assert.Error(t, validateTestMethod(models.TestMethod("ping")))
}

func TestValidateStrategy(t *testing.T) {
	assert.NoError(t, validateStrategy(models.StrategyRoundRobin))
	assert.NoError(t, validateStrategy(models.StrategyWeighted))
	assert.Error(t, validateStrategy(models.LoadBalanceStrategy("random")))
}

func TestValidateProxyType(t *testing.T) {
	assert.NoError(t, validateProxyType(models.ProxySOCKS5))
	assert.NoError(t, validateProxyType(models.ProxyHTTPS))
	assert.Error(t, validateProxyType(models.ProxyType("telnet")))
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, validateBaseURL("https://api.openai.com/v1"))
	assert.Error(t, validateBaseURL("not-a-url"))
	assert.Error(t, validateBaseURL(""))
	assert.Error(t, validateBaseURL("/just/a/path"))
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, validatePort(1))
	assert.NoError(t, validatePort(65535))
	assert.Error(t, validatePort(0))
	assert.Error(t, validatePort(65536))
	assert.Error(t, validatePort(-1))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, validateName("my channel"))
	assert.Error(t, validateName(""))
}
