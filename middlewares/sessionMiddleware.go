package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Session is the redis-backed login record keyed by "Token:<token>". The
// valuation view is fixed at login from the user's role; a request cannot
// upgrade itself to the shadow view by sending a header.
type Session struct {
	BusinessId    string `json:"business_id"`
	UserId        int    `json:"user_id"`
	UserName      string `json:"user_name"`
	ValuationView string `json:"valuation_view"`
	IsAdmin       bool   `json:"is_admin"`
}

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		var session Session
		exists, err := config.GetRedisObject("Token:"+token, &session)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}

		view := session.ValuationView
		if _, err := models.ParseValuationView(view); err != nil {
			view = string(models.ValuationViewReal)
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetBusinessIdInContext(ctx, session.BusinessId)
		ctx = utils.SetUserIdInContext(ctx, session.UserId)
		ctx = utils.SetUserNameInContext(ctx, session.UserName)
		ctx = utils.SetValuationViewInContext(ctx, view)
		ctx = utils.SetIsAdminInContext(ctx, session.IsAdmin)
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Correlation-Id", correlationId)
		c.Next()
	}
}

// RequireSession rejects requests that carry no authenticated business scope.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context())
		if !ok || businessId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
