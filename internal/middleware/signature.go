package middleware

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const rawBodyKey = "raw_body"

// VerifyInteraction authenticates inbound interaction requests against the
// application's ed25519 public key. The platform signs timestamp+body; any
// request that fails verification is rejected before it reaches a handler.
// The raw body is kept on the context because handlers parse it themselves.
func VerifyInteraction(publicKeyHex string) gin.HandlerFunc {
	key, keyErr := hex.DecodeString(publicKeyHex)

	return func(c *gin.Context) {
		if keyErr != nil || len(key) != ed25519.PublicKeySize {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "interaction verification is misconfigured"})
			return
		}

		sig, err := hex.DecodeString(c.GetHeader("X-Signature-Ed25519"))
		if err != nil || len(sig) != ed25519.SignatureSize {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid request signature"})
			return
		}
		timestamp := c.GetHeader("X-Signature-Timestamp")
		if timestamp == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid request signature"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ed25519.Verify(ed25519.PublicKey(key), append([]byte(timestamp), body...), sig) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid request signature"})
			return
		}

		c.Set(rawBodyKey, body)
		c.Next()
	}
}

// GetRawBody retrieves the verified request body from context
func GetRawBody(c *gin.Context) ([]byte, bool) {
	value, exists := c.Get(rawBodyKey)
	if !exists {
		return nil, false
	}
	body, ok := value.([]byte)
	return body, ok
}
