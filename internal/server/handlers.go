package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/01030959804/affiliate-ledger/internal/app"
	"github.com/01030959804/affiliate-ledger/internal/config"
	"github.com/01030959804/affiliate-ledger/internal/database"
	"github.com/01030959804/affiliate-ledger/internal/logger"
	"github.com/01030959804/affiliate-ledger/internal/models"
)

type handlers struct {
	app        *app.App
	flagConfig *config.FlagConfig
	log        *logger.Logger
}

func newHandlers(app *app.App, flagConfig *config.FlagConfig, l *logger.Logger) *handlers {
	return &handlers{app: app, flagConfig: flagConfig, log: l}
}

// writeError maps ledger errors onto HTTP statuses. Contention gets a
// Retry-After so callers know the request is safe to repeat.
func writeError(res http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		res.WriteHeader(http.StatusNotFound)
	case errors.Is(err, database.ErrDuplicateAffiliate):
		res.WriteHeader(http.StatusConflict)
	case errors.Is(err, database.ErrInvalidTransition):
		res.WriteHeader(http.StatusConflict)
	case errors.Is(err, database.ErrInsufficientBalance):
		res.WriteHeader(http.StatusPaymentRequired)
	case errors.Is(err, database.ErrContention):
		res.Header().Set("Retry-After", "1")
		res.WriteHeader(http.StatusServiceUnavailable)
	case errors.Is(err, app.ErrRateLimited):
		res.Header().Set("Retry-After", "60")
		res.WriteHeader(http.StatusTooManyRequests)
	case errors.Is(err, app.ErrInvalidPhone),
		errors.Is(err, app.ErrInvalidName),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrUnknownCountry):
		res.WriteHeader(http.StatusBadRequest)
	default:
		res.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(res http.ResponseWriter, statusCode int, value any) {
	resp, err := json.Marshal(value)
	if err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	res.Write(resp)
}

func (handlers *handlers) affiliateIDFromHeader(res http.ResponseWriter, req *http.Request) (int, bool) {
	affiliateID := req.Header.Get("AffiliateID")
	affiliateIDInt, err := strconv.Atoi(affiliateID)
	if err != nil {
		http.Error(res, err.Error(), http.StatusUnauthorized)
		handlers.log.Sugar().Errorf("Failed to parse affiliate ID: %s", err)
		return 0, false
	}
	return affiliateIDInt, true
}

func pathID(res http.ResponseWriter, req *http.Request, param string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(req, param))
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (handlers *handlers) registerHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	var registerRequest models.RegisterRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &registerRequest); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if registerRequest.TelegramID == 0 {
		http.Error(res, "Missing telegram id", http.StatusBadRequest)
		return
	}

	affiliateID, err := handlers.app.Register(ctx, registerRequest)
	if err != nil {
		writeError(res, err)
		return
	}

	affiliateIDstring := strconv.Itoa(affiliateID)
	res.Header().Add("AffiliateID", affiliateIDstring)
	res.WriteHeader(http.StatusOK)
}

func (handlers *handlers) sessionHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	var sessionRequest models.SessionRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &sessionRequest); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	affiliate, err := handlers.app.Session(ctx, sessionRequest.TelegramID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			res.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeError(res, err)
		return
	}

	affiliateIDstring := strconv.Itoa(affiliate.ID)
	res.Header().Add("AffiliateID", affiliateIDstring)
	res.WriteHeader(http.StatusOK)
}

func (handlers *handlers) getBalanceHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	affiliateIDInt, ok := handlers.affiliateIDFromHeader(res, req)
	if !ok {
		return
	}

	balance, err := handlers.app.GetBalance(ctx, affiliateIDInt)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, balance)
}

func (handlers *handlers) postOrderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	affiliateIDInt, ok := handlers.affiliateIDFromHeader(res, req)
	if !ok {
		return
	}

	var orderRequest models.OrderRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &orderRequest); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := handlers.app.CreateOrder(ctx, affiliateIDInt, orderRequest)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusAccepted, order)
}

func (handlers *handlers) getOrdersHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	affiliateIDInt, ok := handlers.affiliateIDFromHeader(res, req)
	if !ok {
		return
	}

	filter := orderFilterFromQuery(req)
	filter.AffiliateID = affiliateIDInt

	orders, err := handlers.app.ListOrders(ctx, filter)
	if err != nil {
		writeError(res, err)
		return
	}

	if len(orders) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(res, http.StatusOK, orders)
}

func (handlers *handlers) postWithdrawalHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	affiliateIDInt, ok := handlers.affiliateIDFromHeader(res, req)
	if !ok {
		return
	}

	var withdrawRequest models.WithdrawRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err = json.Unmarshal(requestBody, &withdrawRequest); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	withdrawal, err := handlers.app.RequestWithdrawal(ctx, affiliateIDInt, withdrawRequest)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusAccepted, withdrawal)
}

func (handlers *handlers) getWithdrawalsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	affiliateIDInt, ok := handlers.affiliateIDFromHeader(res, req)
	if !ok {
		return
	}

	filter := withdrawalFilterFromQuery(req)
	filter.AffiliateID = affiliateIDInt

	withdrawals, err := handlers.app.ListWithdrawals(ctx, filter)
	if err != nil {
		writeError(res, err)
		return
	}

	if len(withdrawals) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(res, http.StatusOK, withdrawals)
}

func (handlers *handlers) listAffiliateStatsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	stats, err := handlers.app.ListAffiliateStats(ctx)
	if err != nil {
		writeError(res, err)
		return
	}

	if len(stats) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(res, http.StatusOK, stats)
}

func (handlers *handlers) getAffiliateHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	affiliateID, ok := pathID(res, req, "affiliateID")
	if !ok {
		return
	}

	affiliate, err := handlers.app.GetAffiliate(ctx, affiliateID)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, affiliate)
}

func (handlers *handlers) deleteAffiliateHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	affiliateID, ok := pathID(res, req, "affiliateID")
	if !ok {
		return
	}

	if err := handlers.app.DeleteAffiliate(ctx, affiliateID); err != nil {
		writeError(res, err)
		return
	}

	res.WriteHeader(http.StatusNoContent)
}

func (handlers *handlers) listOrdersHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	orders, err := handlers.app.ListOrders(ctx, orderFilterFromQuery(req))
	if err != nil {
		writeError(res, err)
		return
	}

	if len(orders) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(res, http.StatusOK, orders)
}

func (handlers *handlers) confirmOrderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	orderID, ok := pathID(res, req, "orderID")
	if !ok {
		return
	}

	if err := handlers.app.ConfirmOrder(ctx, orderID); err != nil {
		writeError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

func (handlers *handlers) cancelOrderHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	orderID, ok := pathID(res, req, "orderID")
	if !ok {
		return
	}

	if err := handlers.app.CancelOrder(ctx, orderID); err != nil {
		writeError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

func (handlers *handlers) listWithdrawalsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	withdrawals, err := handlers.app.ListWithdrawals(ctx, withdrawalFilterFromQuery(req))
	if err != nil {
		writeError(res, err)
		return
	}

	if len(withdrawals) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(res, http.StatusOK, withdrawals)
}

func (handlers *handlers) approveWithdrawalHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	withdrawalID, ok := pathID(res, req, "withdrawalID")
	if !ok {
		return
	}

	if err := handlers.app.ApproveWithdrawal(ctx, withdrawalID); err != nil {
		writeError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

func (handlers *handlers) rejectWithdrawalHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	withdrawalID, ok := pathID(res, req, "withdrawalID")
	if !ok {
		return
	}

	if err := handlers.app.RejectWithdrawal(ctx, withdrawalID); err != nil {
		writeError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

func (handlers *handlers) ledgerReportsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	reports, err := handlers.app.LedgerReports(ctx)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, reports)
}

func orderFilterFromQuery(req *http.Request) models.OrderFilter {
	filter := models.OrderFilter{
		Status: models.OrderStatus(req.URL.Query().Get("status")),
	}
	if affiliateID, err := strconv.Atoi(req.URL.Query().Get("affiliate_id")); err == nil {
		filter.AffiliateID = affiliateID
	}
	if from, err := time.Parse(time.RFC3339, req.URL.Query().Get("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, req.URL.Query().Get("to")); err == nil {
		filter.To = to
	}
	return filter
}

func withdrawalFilterFromQuery(req *http.Request) models.WithdrawalFilter {
	filter := models.WithdrawalFilter{
		Status: models.WithdrawalStatus(req.URL.Query().Get("status")),
	}
	if affiliateID, err := strconv.Atoi(req.URL.Query().Get("affiliate_id")); err == nil {
		filter.AffiliateID = affiliateID
	}
	if from, err := time.Parse(time.RFC3339, req.URL.Query().Get("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, req.URL.Query().Get("to")); err == nil {
		filter.To = to
	}
	return filter
}
