package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/shopcat/backend/internal/infrastructure/journal"
	"github.com/shopcat/backend/pkg/httpcontext"
)

type JournalHandler struct {
	baseHandler
	store *journal.Store
}

func NewJournalHandler(store *journal.Store, adapter *httpcontext.Adapter, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{
		baseHandler: newBaseHandler(adapter, logger),
		store:       store,
	}
}

const defaultJournalLimit = 50

// @Summary Recent mutation journal entries
// @Tags admin
// @Router /admin/journal [get]
func (h *JournalHandler) Recent(ctx *fasthttp.RequestCtx) {
	limit := parseLimit(string(ctx.QueryArgs().Peek("limit")), defaultJournalLimit)

	entries, err := h.store.Recent(limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	h.respondSuccess(ctx, http.StatusOK, entries)
}

// parseLimit falls back for anything that is not a positive integer.
func parseLimit(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil && v > 0 {
		return v
	}
	return fallback
}
