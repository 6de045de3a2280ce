// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pedalfix/internal/modules/repair"
	"pedalfix/internal/modules/user"
	"pedalfix/internal/modules/wallet"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeRepairError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repair.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repair.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, repair.ErrNotFound), errors.Is(err, user.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repair.ErrInvalidState), errors.Is(err, repair.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, repair.ErrDependency):
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeWalletError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, wallet.ErrEmptyBalance), errors.Is(err, wallet.ErrInsufficientFunds):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
