package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/shopcat/backend/api/transport"
	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/pkg/httpcontext"
	catalogUC "github.com/shopcat/backend/usecase/catalog"
)

type UnitHandler struct {
	baseHandler
	uc *catalogUC.UseCase
}

func NewUnitHandler(uc *catalogUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Import units
// @Tags units
// @Router /imports [post]
func (h *UnitHandler) ImportUnits(ctx *fasthttp.RequestCtx) {
	var req transport.ImportRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	updateDate, err := transport.ParseDate(req.UpdateDate)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.ImportBatch(stdCtx, req.Units(), updateDate); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Delete unit
// @Tags units
// @Router /delete/{id} [delete]
func (h *UnitHandler) DeleteUnit(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing unit id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteUnit(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Get unit subtree
// @Tags units
// @Router /nodes/{id} [get]
func (h *UnitHandler) GetNode(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing unit id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tree, err := h.uc.GetNode(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tree)
}
