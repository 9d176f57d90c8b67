package handlers

import (
	"fmt"
	"net/url"

	"keyhaven/internal/models"
)

func validateChannelType(t models.ChannelType) error {
	switch t {
	case models.ChannelOpenAI, models.ChannelAnthropic, models.ChannelGemini, models.ChannelOpenAICompatible:
		return nil
	default:
		return fmt.Errorf("invalid channel type %q", t)
	}
}

func validateTestMethod(m models.TestMethod) error {
	switch m {
	case models.TestMethodBalance, models.TestMethodChat, models.TestMethodModels:
		return nil
	default:
		return fmt.Errorf("invalid testMethod %q", m)
	}
}

func validateStrategy(s models.LoadBalanceStrategy) error {
	switch s {
	case models.StrategyRoundRobin, models.StrategyWeighted, models.StrategyPriority, models.StrategyLeastUsed:
		return nil
	default:
		return fmt.Errorf("invalid loadBalanceStrategy %q", s)
	}
}

func validateProxyType(t models.ProxyType) error {
	switch t {
	case models.ProxySOCKS5, models.ProxySOCKS5H, models.ProxyHTTP, models.ProxyHTTPS:
		return nil
	default:
		return fmt.Errorf("invalid proxy type %q", t)
	}
}

func validateBaseURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("baseUrl must be an absolute URL")
	}
	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be in [1,65535]")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
