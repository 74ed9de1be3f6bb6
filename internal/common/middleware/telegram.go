package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

const (
	InitDataHeader = "init_data"
	UserKey        = "user"
	UserIDKey      = "user_id"
)

// TelegramInitDataMiddleware проверяет подпись init data мини-приложения
// и кладёт пользователя в контекст запроса.
func TelegramInitDataMiddleware(botToken string, expIn time.Duration, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		initDataQuery := c.GetHeader(InitDataHeader)
		if initDataQuery == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
			return
		}

		if err := initdata.Validate(initDataQuery, botToken, expIn); err != nil {
			logger.Debug().Err(err).Msg("Init data validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid init data"})
			return
		}

		parsedData, err := initdata.Parse(initDataQuery)
		if err != nil {
			logger.Debug().Err(err).Msg("Init data parse failed")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to parse init data"})
			return
		}
		if parsedData.User.ID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Init data has no user"})
			return
		}

		c.Set(UserKey, parsedData.User)
		c.Set(UserIDKey, parsedData.User.ID)
		c.Next()
	}
}
