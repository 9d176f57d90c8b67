package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keyhaven/internal/models"
)

func TestMaskProxyRecordMasksPasswordWhenPresent(t *testing.T) {
	p := models.Proxy{Password: "s3cret"}
	masked := maskProxyRecord(p)
	assert.Equal(t, "****", masked.Password)
}

func TestMaskProxyRecordLeavesEmptyPasswordEmpty(t *testing.T) {
	p := models.Proxy{Password: ""}
	masked := maskProxyRecord(p)
	assert.Empty(t, masked.Password)
}

func TestProxyRequestValidateAcceptsWellFormedRequest(t *testing.T) {
	req := ProxyRequest{Name: "us-east", Type: models.ProxySOCKS5, Host: "proxy.example.com", Port: 1080}
	assert.NoError(t, req.validate())
}

func TestProxyRequestValidateRejectsMissingName(t *testing.T) {
	req := ProxyRequest{Type: models.ProxySOCKS5, Host: "proxy.example.com", Port: 1080}
	assert.Error(t, req.validate())
}

func TestProxyRequestValidateRejectsBadType(t *testing.T) {
	req := ProxyRequest{Name: "x", Type: "bogus", Host: "proxy.example.com", Port: 1080}
	assert.Error(t, req.validate())
}

func TestProxyRequestValidateRejectsBadPort(t *testing.T) {
	req := ProxyRequest{Name: "x", Type: models.ProxySOCKS5, Host: "proxy.example.com", Port: 70000}
	assert.Error(t, req.validate())
}
