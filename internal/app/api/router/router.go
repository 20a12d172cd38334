package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"geodrop/internal/app/api/auth"
	"geodrop/internal/db"
	"geodrop/internal/domain/airdrop"
	"geodrop/internal/observability/logging"
	"geodrop/internal/observability/metrics"
)

// EventPublisher forwards committed operations to the audit trail.
type EventPublisher interface {
	Publish(ctx context.Context, event airdrop.Event) error
}

// AuditReader lists the stored audit trail of an airdrop.
type AuditReader interface {
	ListAuditLog(ctx context.Context, airdropID uint64, limit int) ([]db.AuditLog, error)
}

// Dependencies enumerates services required by API handlers.
type Dependencies struct {
	Service   *airdrop.Service
	Publisher EventPublisher
	// Audit is optional; the audit route is registered only when set.
	Audit AuditReader
	// Auth configures signature checks on mutating routes.
	Auth          auth.Options
	Logger        logrus.FieldLogger
	FaucetEnabled bool
}

// New builds a gin.Engine with all routes registered.
func New(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(logging.GinMiddleware(log), gin.Recovery(), metrics.GinMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	h := &handler{svc: deps.Service, publisher: deps.Publisher, audit: deps.Audit, log: log}

	router.GET("/treasury", h.getTreasury)
	router.GET("/airdrops/:id", h.getAirdrop)
	router.GET("/airdrops/:id/claims/:claimer", h.getReceipt)
	router.GET("/wallets/:address", h.getWallet)
	router.GET("/rarities", h.listRarities)
	if deps.Audit != nil {
		router.GET("/airdrops/:id/audit", h.listAudit)
	}
	if deps.FaucetEnabled {
		router.POST("/faucet", h.faucet)
	}

	if deps.Auth.Guard == nil {
		log.Warn("no replay guard configured; signed requests can be replayed within the skew window")
	}
	signed := router.Group("/", auth.Required(deps.Auth))
	signed.POST("/treasury", h.initializeTreasury)
	signed.POST("/treasury/deposit", h.deposit)
	signed.POST("/airdrops", h.createAirdrop)
	signed.POST("/airdrops/:id/claim", h.claimAirdrop)

	return router
}

type handler struct {
	svc       *airdrop.Service
	publisher EventPublisher
	audit     AuditReader
	log       logrus.FieldLogger
}

// publish forwards a committed event. The operation already succeeded, so a
// failed publish is logged and not reported to the caller.
func (h *handler) publish(c *gin.Context, event airdrop.Event) {
	if h.publisher == nil {
		return
	}
	// The operation is committed; a client that hangs up must not drop its event.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"airdrop_id": event.AirdropID,
		}).WithError(err).Warn("audit event not published")
	}
}

// statusFor maps a domain error to its HTTP status. A caller whose own wallet
// cannot pay gets 422; only a treasury shortfall is reported as 503.
func statusFor(err error) int {
	if errors.Is(err, airdrop.ErrInsufficientFunds) {
		return http.StatusUnprocessableEntity
	}
	switch airdrop.KindOf(err) {
	case airdrop.KindValidation:
		return http.StatusBadRequest
	case airdrop.KindUnauthorized:
		return http.StatusForbidden
	case airdrop.KindNotFound:
		return http.StatusNotFound
	case airdrop.KindUniqueness, airdrop.KindRetryable:
		return http.StatusConflict
	case airdrop.KindState:
		return http.StatusGone
	case airdrop.KindResource:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).WithError(err).Error("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error()}
	if errors.Is(err, airdrop.ErrConflict) {
		body["retryable"] = true
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
