package auth

import "github.com/gin-gonic/gin"

const identityContextKey = "identity"

// Identity is the authenticated user of a request or socket
type Identity struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SetIdentity stores the identity on a gin context
func SetIdentity(c *gin.Context, id *Identity) {
	c.Set(identityContextKey, id)
	c.Set("user_id", id.UserID)
}

// GetIdentity returns the identity set by the session gate
func GetIdentity(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok && id != nil
}
