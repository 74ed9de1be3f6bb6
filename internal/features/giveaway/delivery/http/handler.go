package http

import (
	"errors"
	"io"
	"net/http"

	apperrors "giveaway-draw-backend/internal/common/errors"
	"giveaway-draw-backend/internal/common/middleware"
	"giveaway-draw-backend/internal/features/giveaway/models"
	giveawayservice "giveaway-draw-backend/internal/features/giveaway/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type GiveawayHandler struct {
	participation giveawayservice.ParticipationService
	bonuses       giveawayservice.BonusService
	referrals     giveawayservice.ReferralLinkService
	draws         giveawayservice.DrawService
	wrap          func(gin.HandlerFunc) gin.HandlerFunc
}

func NewGiveawayHandler(
	participation giveawayservice.ParticipationService,
	bonuses giveawayservice.BonusService,
	referrals giveawayservice.ReferralLinkService,
	draws giveawayservice.DrawService,
	logger zerolog.Logger,
) *GiveawayHandler {
	return &GiveawayHandler{
		participation: participation,
		bonuses:       bonuses,
		referrals:     referrals,
		draws:         draws,
		wrap:          middleware.HandleErrorWrapper(logger),
	}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("/:id/join", h.wrap(h.join))
		giveaways.POST("/:id/verify", h.wrap(h.verify))
		giveaways.GET("/:id/bonuses/:category", h.wrap(h.canGrantBonus))
		giveaways.POST("/:id/bonuses", h.wrap(h.grantBonus))
		giveaways.POST("/:id/draw", h.wrap(h.draw))
		giveaways.GET("/:id/winners", h.wrap(h.getWinners))
	}

	referrals := router.Group("/referrals")
	{
		referrals.POST("/link", h.wrap(h.issueReferralLink))
		referrals.GET("/link/:token", h.wrap(h.resolveReferralLink))
	}
}

// @Summary Участвовать в розыгрыше
// @Description Регистрирует пользователя. Повторный вызов возвращает уже выданный билет.
// @Tags participation
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "ID розыгрыша"
// @Param input body models.JoinBody false "Реферальный токен"
// @Success 200 {object} models.JoinResult
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/join [post]
func (h *GiveawayHandler) join(c *gin.Context) {
	userID := currentUserID(c)

	// Тело необязательно
	var body models.JoinBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.Error(apperrors.NewValidationError("body", err.Error()))
		return
	}

	result, err := h.participation.Join(c.Request.Context(), &models.JoinRequest{
		GiveawayID:    c.Param("id"),
		UserID:        userID,
		ReferralToken: body.ReferralToken,
	})
	if err != nil {
		c.Error(mapServiceError(err, c.Param("id")))
		return
	}

	respondJoin(c, result)
}

// @Summary Ответ на проверку
// @Description Проверяет ответ на капчу и продолжает регистрацию
// @Tags participation
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "ID розыгрыша"
// @Param input body models.VerifyBody true "Ответ"
// @Success 200 {object} models.JoinResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/verify [post]
func (h *GiveawayHandler) verify(c *gin.Context) {
	var body models.VerifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(apperrors.NewValidationError("answer", err.Error()))
		return
	}

	result, err := h.participation.ConfirmVerification(c.Request.Context(), c.Param("id"), currentUserID(c), body.Answer)
	if err != nil {
		c.Error(mapServiceError(err, c.Param("id")))
		return
	}

	respondJoin(c, result)
}

func respondJoin(c *gin.Context, result *models.JoinResult) {
	if result.Outcome == models.JoinOutcomeTryAgain {
		c.Header("Retry-After", "1")
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Можно ли начислить бонус
// @Tags bonuses
// @Produce json
// @Security TelegramInitData
// @Param id path string true "ID розыгрыша"
// @Param category path string true "Категория бонуса"
// @Success 200 {object} models.BonusEligibility
// @Failure 400 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/bonuses/{category} [get]
func (h *GiveawayHandler) canGrantBonus(c *gin.Context) {
	allowed, reason, err := h.bonuses.CanGrant(c.Request.Context(), c.Param("id"), currentUserID(c), models.BonusCategory(c.Param("category")))
	if err != nil {
		c.Error(mapServiceError(err, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, models.BonusEligibility{Allowed: allowed, Reason: reason})
}

// @Summary Начислить бонусный билет
// @Description Только создатель розыгрыша. Одна категория начисляется участнику не более одного раза.
// @Tags bonuses
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "ID розыгрыша"
// @Param input body models.BonusGrantRequest true "Бонус"
// @Success 200 {object} models.BonusGrantResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/bonuses [post]
func (h *GiveawayHandler) grantBonus(c *gin.Context) {
	var req models.BonusGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidationError("body", err.Error()))
		return
	}

	granted, err := h.bonuses.GrantAsCreator(c.Request.Context(), currentUserID(c), c.Param("id"), &req)
	if err != nil {
		c.Error(mapServiceError(err, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, models.BonusGrantResponse{Granted: granted})
}

// @Summary Провести розыгрыш
// @Description Только создатель, после окончания розыгрыша
// @Tags draw
// @Produce json
// @Security TelegramInitData
// @Param id path string true "ID розыгрыша"
// @Success 200 {object} models.WinnersResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/draw [post]
func (h *GiveawayHandler) draw(c *gin.Context) {
	winners, err := h.draws.DrawAsCreator(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.Error(mapServiceError(err, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, models.WinnersResponse{GiveawayID: c.Param("id"), Winners: nonNilWinners(winners)})
}

// @Summary Победители розыгрыша
// @Tags draw
// @Produce json
// @Security TelegramInitData
// @Param id path string true "ID розыгрыша"
// @Success 200 {object} models.WinnersResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/winners [get]
func (h *GiveawayHandler) getWinners(c *gin.Context) {
	winners, err := h.draws.GetWinners(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(mapServiceError(err, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, models.WinnersResponse{GiveawayID: c.Param("id"), Winners: nonNilWinners(winners)})
}

// @Summary Получить реферальную ссылку
// @Tags referrals
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.ReferralLinkResponse
// @Router /referrals/link [post]
func (h *GiveawayHandler) issueReferralLink(c *gin.Context) {
	token, err := h.referrals.IssueLink(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.Error(apperrors.Wrap(err, apperrors.ErrCodeCacheError, "Failed to issue referral link"))
		return
	}

	c.JSON(http.StatusOK, models.ReferralLinkResponse{Token: token})
}

// @Summary Владелец реферальной ссылки
// @Tags referrals
// @Produce json
// @Security TelegramInitData
// @Param token path string true "Токен"
// @Success 200 {object} models.ReferralOwnerResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /referrals/link/{token} [get]
func (h *GiveawayHandler) resolveReferralLink(c *gin.Context) {
	userID, ok, err := h.referrals.ResolveLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Error(apperrors.Wrap(err, apperrors.ErrCodeCacheError, "Failed to resolve referral link"))
		return
	}
	if !ok {
		c.Error(apperrors.New(apperrors.ErrCodeReferralNotFound, "Referral link not found or expired"))
		return
	}

	c.JSON(http.StatusOK, models.ReferralOwnerResponse{UserID: userID})
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(middleware.UserIDKey)
}

func nonNilWinners(winners []models.Winner) []models.Winner {
	if winners == nil {
		return []models.Winner{}
	}
	return winners
}

// mapServiceError переводит ошибки сервиса в коды API
func mapServiceError(err error, giveawayID string) *apperrors.AppError {
	switch {
	case errors.Is(err, giveawayservice.ErrNotFound):
		return apperrors.NewGiveawayNotFoundError(giveawayID)
	case errors.Is(err, giveawayservice.ErrNotOwner):
		return apperrors.New(apperrors.ErrCodeNotOwner, err.Error())
	case errors.Is(err, giveawayservice.ErrGiveawayNotActive):
		return apperrors.New(apperrors.ErrCodeGiveawayNotJoinable, err.Error())
	case errors.Is(err, giveawayservice.ErrGiveawayNotEnded):
		return apperrors.New(apperrors.ErrCodeGiveawayNotEnded, err.Error())
	case errors.Is(err, giveawayservice.ErrLockContention):
		return apperrors.NewTryAgainError(giveawayID)
	case errors.Is(err, giveawayservice.ErrInvalidCategory):
		return apperrors.New(apperrors.ErrCodeInvalidCategory, err.Error())
	case errors.Is(err, giveawayservice.ErrSubscriptionCheck):
		return apperrors.Wrap(err, apperrors.ErrCodeTelegramAPI, "Failed to check channel subscription")
	case errors.Is(err, giveawayservice.ErrTicketCodeExhausted):
		return apperrors.Wrap(err, apperrors.ErrCodeTicketCodeExhausted, "Failed to issue ticket code")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Internal server error")
	}
}
