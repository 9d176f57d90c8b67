// Package handlers provides HTTP request handlers for the management surface.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ok writes the {success:true, data} envelope.
func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// okMessage writes the {success:true, message} envelope for actions with
// no meaningful body.
func okMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// fail writes the {success:false, error} envelope.
func fail(c *gin.Context, status int, err string) {
	c.JSON(status, gin.H{"success": false, "error": err})
}

// maskKey applies the ApiKey secret-masking rule: key[0:4]+"****"+key[-4:],
// or "****" outright when the value is too short to reveal a prefix/suffix
// safely.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// maskToken applies the Token secret-masking rule: token[0:6]+"****"+token[-4:].
func maskToken(token string) string {
	if len(token) <= 10 {
		return "****"
	}
	return token[:6] + "****" + token[len(token)-4:]
}

// maskPassword applies the Proxy password masking rule: present becomes
// "****", absent stays absent.
func maskPassword(password string) string {
	if password == "" {
		return ""
	}
	return "****"
}
