// README: HTTP router registration; delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pedalfix/internal/http/handlers"
	"pedalfix/internal/http/middleware"
	"pedalfix/internal/modules/repair"
	"pedalfix/internal/modules/user"
	"pedalfix/internal/modules/wallet"
)

type RouterDeps struct {
	Repairs   *repair.Service
	Users     *user.Store
	Wallets   *wallet.Service
	JWTSecret string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	repairHandler := handlers.NewRepairHandler(deps.Repairs)
	fixerHandler := handlers.NewFixerHandler(deps.Users)
	walletHandler := handlers.NewWalletHandler(deps.Wallets)
	paymentHandler := handlers.NewPaymentHandler(deps.Repairs)

	api := r.Group("/api", middleware.Auth(deps.JWTSecret))
	{
		api.POST("/repairs", repairHandler.Create)
		api.GET("/repairs/:id", repairHandler.Get)
		api.POST("/repairs/:id/accept", repairHandler.Accept)
		api.POST("/repairs/:id/decline", repairHandler.Decline)
		api.POST("/repairs/:id/book", repairHandler.Book)
		api.POST("/repairs/:id/complete", repairHandler.Complete)
		api.POST("/repairs/:id/cancel", repairHandler.Cancel)

		api.POST("/fixers/availability", fixerHandler.SetAvailability)

		api.GET("/wallet", walletHandler.Balance)
		api.POST("/wallet/payouts", walletHandler.RequestPayout)
		api.GET("/wallet/payouts", walletHandler.ListPayouts)
	}

	// Authority callbacks carry their own provider authentication, which is
	// out of scope here; they bypass the user auth middleware.
	r.POST("/api/payments/confirm", paymentHandler.Confirm)
	r.POST("/api/payments/fail", paymentHandler.Fail)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
