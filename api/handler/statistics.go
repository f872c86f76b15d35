package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/shopcat/backend/api/transport"
	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/pkg/httpcontext"
	statisticsUC "github.com/shopcat/backend/usecase/statistics"
)

type StatisticsHandler struct {
	baseHandler
	uc *statisticsUC.UseCase
}

func NewStatisticsHandler(uc *statisticsUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Recently updated offers
// @Tags statistics
// @Router /sales [get]
func (h *StatisticsHandler) GetSales(ctx *fasthttp.RequestCtx) {
	date, err := transport.ParseDate(string(ctx.QueryArgs().Peek("date")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	offers, err := h.uc.RecentOffers(stdCtx, date)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if offers == nil {
		offers = []domain.ShopUnit{}
	}
	h.respondSuccess(ctx, http.StatusOK, offers)
}

// @Summary Unit history over an interval
// @Tags statistics
// @Router /node/{id}/statistic [get]
func (h *StatisticsHandler) GetStatistic(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing unit id", nil))
		return
	}

	from, err := transport.ParseDate(string(ctx.QueryArgs().Peek("dateStart")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	to, err := transport.ParseDate(string(ctx.QueryArgs().Peek("dateEnd")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	snaps, err := h.uc.History(stdCtx, id, from, to)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if snaps == nil {
		snaps = []domain.Snapshot{}
	}
	h.respondSuccess(ctx, http.StatusOK, snaps)
}
