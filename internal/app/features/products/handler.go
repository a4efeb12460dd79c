// Package products serves the product catalog and its editor workflow.
package products

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	productstore "github.com/dalemusser/automationhub/internal/app/store/products"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/assets"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Products *productstore.Store
	Uploader *assets.Uploader
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(
	products *productstore.Store,
	uploader *assets.Uploader,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Products: products,
		Uploader: uploader,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type productResponse struct {
	Product *models.Product `json:"product"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, productstore.ErrNotFound) {
		err = apperr.Wrap(apperr.NotFound, "Product not found", err)
	}
	h.ErrLog.Respond(w, r, msg, err)
}
