package app

import (
	"context"
	"errors"

	"github.com/01030959804/affiliate-ledger/internal/config"
	"github.com/01030959804/affiliate-ledger/internal/limiter"
	"github.com/01030959804/affiliate-ledger/internal/logger"
	"github.com/01030959804/affiliate-ledger/internal/models"
	"github.com/01030959804/affiliate-ledger/internal/utils"
)

// Validation failures surfaced before anything reaches storage.
var (
	ErrInvalidPhone   = errors.New("app: phone does not match the expected format")
	ErrInvalidName    = errors.New("app: name must not be empty")
	ErrInvalidAmount  = errors.New("app: amount is out of bounds")
	ErrUnknownCountry = errors.New("app: unsupported country")
	ErrRateLimited    = errors.New("app: order rate limit exceeded")
)

// Storage is the ledger surface the app orchestrates. *database.PostgresqlDB
// implements it; tests substitute an in-memory fake.
type Storage interface {
	CreateAffiliate(ctx context.Context, registerRequest models.RegisterRequest) (int, error)
	GetAffiliate(ctx context.Context, affiliateID int) (models.Affiliate, error)
	GetAffiliateByTelegramID(ctx context.Context, telegramID int64) (models.Affiliate, error)
	ListAffiliateStats(ctx context.Context) ([]models.AffiliateStats, error)
	DeleteAffiliate(ctx context.Context, affiliateID int) error

	CreateOrder(ctx context.Context, affiliateID int, orderRequest models.OrderRequest) (models.Order, error)
	ConfirmOrder(ctx context.Context, orderID int) error
	CancelOrder(ctx context.Context, orderID int) error
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)

	RequestWithdrawal(ctx context.Context, affiliateID int, withdrawRequest models.WithdrawRequest) (models.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID int) error
	RejectWithdrawal(ctx context.Context, withdrawalID int) error
	ListWithdrawals(ctx context.Context, filter models.WithdrawalFilter) ([]models.Withdrawal, error)

	LedgerReports(ctx context.Context) ([]models.LedgerReport, error)
}

type App struct {
	db           Storage
	orderLimiter *limiter.OrderLimiter
	flagConfig   *config.FlagConfig
	log          *logger.Logger
}

func NewApp(db Storage, orderLimiter *limiter.OrderLimiter, flagConfig *config.FlagConfig, log *logger.Logger) *App {
	return &App{db: db, orderLimiter: orderLimiter, flagConfig: flagConfig, log: log}
}

func (app *App) Register(ctx context.Context, registerRequest models.RegisterRequest) (affiliateID int, err error) {
	if registerRequest.Name == "" || registerRequest.StoreName == "" {
		return 0, ErrInvalidName
	}
	if !utils.IsValidAffiliatePhone(registerRequest.Phone) {
		return 0, ErrInvalidPhone
	}
	affiliateID, err = app.db.CreateAffiliate(ctx, registerRequest)
	return
}

// Session resolves an affiliate by telegram id so a returning collaborator
// can obtain a fresh cookie without registering again.
func (app *App) Session(ctx context.Context, telegramID int64) (affiliate models.Affiliate, err error) {
	affiliate, err = app.db.GetAffiliateByTelegramID(ctx, telegramID)
	return
}

func (app *App) GetAffiliate(ctx context.Context, affiliateID int) (affiliate models.Affiliate, err error) {
	affiliate, err = app.db.GetAffiliate(ctx, affiliateID)
	return
}

func (app *App) GetBalance(ctx context.Context, affiliateID int) (balance models.BalanceInfo, err error) {
	affiliate, err := app.db.GetAffiliate(ctx, affiliateID)
	if err != nil {
		return balance, err
	}
	balance = models.BalanceInfo{
		Current:     affiliate.Balance,
		TotalSales:  affiliate.TotalSales,
		TotalOrders: affiliate.TotalOrders,
	}
	return balance, nil
}

func (app *App) ListAffiliateStats(ctx context.Context) (stats []models.AffiliateStats, err error) {
	stats, err = app.db.ListAffiliateStats(ctx)
	return
}

func (app *App) DeleteAffiliate(ctx context.Context, affiliateID int) (err error) {
	err = app.db.DeleteAffiliate(ctx, affiliateID)
	return
}

func (app *App) CreateOrder(ctx context.Context, affiliateID int, orderRequest models.OrderRequest) (order models.Order, err error) {
	if orderRequest.Country == "" {
		orderRequest.Country = models.DefaultCountry
	}
	if orderRequest.Country != models.CountrySaudiArabia && orderRequest.Country != models.CountryUAE {
		return order, ErrUnknownCountry
	}
	if orderRequest.CustomerName == "" || orderRequest.Product == "" {
		return order, ErrInvalidName
	}
	if !utils.IsValidCustomerPhone(orderRequest.CustomerPhone, orderRequest.Country) {
		return order, ErrInvalidPhone
	}
	if orderRequest.Price <= 0 || orderRequest.Commission < 0 || orderRequest.Commission > orderRequest.Price {
		return order, ErrInvalidAmount
	}

	if !app.orderLimiter.Allow(ctx, affiliateID) {
		return order, ErrRateLimited
	}

	order, err = app.db.CreateOrder(ctx, affiliateID, orderRequest)
	return
}

func (app *App) ConfirmOrder(ctx context.Context, orderID int) (err error) {
	err = app.db.ConfirmOrder(ctx, orderID)
	return
}

func (app *App) CancelOrder(ctx context.Context, orderID int) (err error) {
	err = app.db.CancelOrder(ctx, orderID)
	return
}

func (app *App) ListOrders(ctx context.Context, filter models.OrderFilter) (orders []models.Order, err error) {
	orders, err = app.db.ListOrders(ctx, filter)
	return
}

func (app *App) RequestWithdrawal(ctx context.Context, affiliateID int, withdrawRequest models.WithdrawRequest) (withdrawal models.Withdrawal, err error) {
	if withdrawRequest.Amount < app.flagConfig.FlagMinWithdrawal {
		return withdrawal, ErrInvalidAmount
	}
	if !utils.IsValidAffiliatePhone(withdrawRequest.Phone) {
		return withdrawal, ErrInvalidPhone
	}
	withdrawal, err = app.db.RequestWithdrawal(ctx, affiliateID, withdrawRequest)
	return
}

func (app *App) ApproveWithdrawal(ctx context.Context, withdrawalID int) (err error) {
	err = app.db.ApproveWithdrawal(ctx, withdrawalID)
	return
}

func (app *App) RejectWithdrawal(ctx context.Context, withdrawalID int) (err error) {
	err = app.db.RejectWithdrawal(ctx, withdrawalID)
	return
}

func (app *App) ListWithdrawals(ctx context.Context, filter models.WithdrawalFilter) (withdrawals []models.Withdrawal, err error) {
	withdrawals, err = app.db.ListWithdrawals(ctx, filter)
	return
}

func (app *App) LedgerReports(ctx context.Context) (reports []models.LedgerReport, err error) {
	reports, err = app.db.LedgerReports(ctx)
	return
}
