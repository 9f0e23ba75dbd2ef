package routes

import (
	"errors"

	"partnerhub/config"
	"partnerhub/controllers/admin"
	"partnerhub/controllers/affiliate"
	"partnerhub/controllers/agent"
	"partnerhub/controllers/ingest"
	"partnerhub/helpers"
	"partnerhub/middlewares"
	"partnerhub/models"
	"partnerhub/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
)

func Setup(app *fiber.App, svc *services.Services, cfg *config.Config) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	agentHandler := agent.New(svc)
	agentroutes := app.Group("/agent", middlewares.PartnerAuth(svc.Accounts, models.RoleAgent))
	agentroutes.Get("/dashboard", agentHandler.Dashboard)
	agentroutes.Get("/commissions", agentHandler.Commissions)
	agentroutes.Get("/withdrawals", agentHandler.Withdrawals)
	agentroutes.Post("/withdrawals", agentHandler.RequestWithdrawal)
	agentroutes.Get("/players", agentHandler.Players)
	agentroutes.Get("/players/:id", agentHandler.Player)
	agentroutes.Patch("/players/:id/status", agentHandler.TogglePlayerStatus)

	affiliateHandler := affiliate.New(svc)
	affiliateroutes := app.Group("/affiliate", middlewares.PartnerAuth(svc.Accounts, models.RoleAffiliate))
	affiliateroutes.Get("/dashboard", affiliateHandler.Dashboard)
	affiliateroutes.Get("/earnings", affiliateHandler.Earnings)
	affiliateroutes.Get("/payouts", affiliateHandler.Payouts)
	affiliateroutes.Post("/payouts", affiliateHandler.RequestPayout)

	adminHandler := admin.New(svc)
	adminroutes := app.Group("/admin", middlewares.AdminAuth(cfg.AdminAPIKey))
	adminroutes.Get("/withdrawals", adminHandler.Withdrawals)
	adminroutes.Patch("/withdrawals/:id", adminHandler.ProcessWithdrawal)
	adminroutes.Post("/agents", adminHandler.CreateAgent)
	adminroutes.Post("/affiliates", adminHandler.CreateAffiliate)
	adminroutes.Post("/commissions/:id/cancel", adminHandler.CancelCommission)

	//platform events
	ingestHandler := ingest.New(svc)
	ingestroutes := app.Group("/ingest", middlewares.IngestAuth(cfg.MasterAgentCode, cfg.MasterAgentSecret))
	ingestroutes.Post("/players", ingestHandler.Player)
	ingestroutes.Post("/losses", ingestHandler.Loss)
	ingestroutes.Post("/referrals", ingestHandler.Referral)
	ingestroutes.Post("/deposits", ingestHandler.Deposit)
}

// NewApp builds the fiber app with the shared middleware stack and all routes.
func NewApp(svc *services.Services, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Partner-Code, X-Secret-Key, X-Admin-ID, X-Admin-Key, X-Signature",
	}))

	Setup(app, svc, cfg)
	return app
}

// errorHandler answers errors that escaped the handlers (unknown routes,
// oversized bodies, recovered panics) with the usual envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		status = e.Code
	}
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("unhandled error")
	}
	return helpers.JSONErrorStatus(c, status, statusCode(status), nil)
}

func statusCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	}
	if status < fiber.StatusInternalServerError {
		return "REQUEST_FAILED"
	}
	return "INTERNAL_ERROR"
}
