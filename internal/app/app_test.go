package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01030959804/affiliate-ledger/internal/config"
	"github.com/01030959804/affiliate-ledger/internal/limiter"
	"github.com/01030959804/affiliate-ledger/internal/logger"
	"github.com/01030959804/affiliate-ledger/internal/models"
)

// stubStorage records what reached the storage layer; validation tests only
// care whether a call got through.
type stubStorage struct {
	Storage
	createOrderCalls int
	withdrawalCalls  int
}

func (s *stubStorage) CreateAffiliate(ctx context.Context, registerRequest models.RegisterRequest) (int, error) {
	return 1, nil
}

func (s *stubStorage) CreateOrder(ctx context.Context, affiliateID int, orderRequest models.OrderRequest) (models.Order, error) {
	s.createOrderCalls++
	return models.Order{ID: 1, AffiliateID: affiliateID, Status: models.OrderPending}, nil
}

func (s *stubStorage) RequestWithdrawal(ctx context.Context, affiliateID int, withdrawRequest models.WithdrawRequest) (models.Withdrawal, error) {
	s.withdrawalCalls++
	return models.Withdrawal{ID: 1, AffiliateID: affiliateID, Status: models.WithdrawalPending}, nil
}

func newTestApp(t *testing.T) (*App, *stubStorage) {
	log, err := logger.CreateLogger("info")
	require.NoError(t, err)

	flagConfig := &config.FlagConfig{FlagMinWithdrawal: 50.0, FlagOrderRatePerMin: 10}
	storage := &stubStorage{}
	return NewApp(storage, limiter.NewOrderLimiter(nil, flagConfig.FlagOrderRatePerMin, log), flagConfig, log), storage
}

func TestRegisterValidation(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name            string
		registerRequest models.RegisterRequest
		expectedErr     error
	}{
		{
			name: "valid affiliate",
			registerRequest: models.RegisterRequest{
				TelegramID: 1, Name: "Mona", Phone: "+201234567890", StoreName: "Mona Store",
			},
		},
		{
			name: "missing name",
			registerRequest: models.RegisterRequest{
				TelegramID: 1, Phone: "+201234567890", StoreName: "Mona Store",
			},
			expectedErr: ErrInvalidName,
		},
		{
			name: "saudi phone rejected for payout",
			registerRequest: models.RegisterRequest{
				TelegramID: 1, Name: "Mona", Phone: "+966512345678", StoreName: "Mona Store",
			},
			expectedErr: ErrInvalidPhone,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := app.Register(context.Background(), test.registerRequest)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateOrderValidation(t *testing.T) {
	validOrder := models.OrderRequest{
		CustomerName:  "Ali",
		CustomerPhone: "+966512345678",
		City:          "Riyadh",
		Product:       "perfume",
		Price:         300,
		Commission:    45,
	}

	tests := []struct {
		name        string
		mutate      func(orderRequest *models.OrderRequest)
		expectedErr error
	}{
		{
			name:   "valid order defaults to saudi arabia",
			mutate: func(orderRequest *models.OrderRequest) {},
		},
		{
			name: "uae order with uae phone",
			mutate: func(orderRequest *models.OrderRequest) {
				orderRequest.Country = models.CountryUAE
				orderRequest.CustomerPhone = "+971512345678"
			},
		},
		{
			name: "unknown country",
			mutate: func(orderRequest *models.OrderRequest) {
				orderRequest.Country = "Egypt"
			},
			expectedErr: ErrUnknownCountry,
		},
		{
			name: "phone from the wrong country",
			mutate: func(orderRequest *models.OrderRequest) {
				orderRequest.CustomerPhone = "+971512345678"
			},
			expectedErr: ErrInvalidPhone,
		},
		{
			name: "zero price",
			mutate: func(orderRequest *models.OrderRequest) {
				orderRequest.Price = 0
			},
			expectedErr: ErrInvalidAmount,
		},
		{
			name: "commission above price",
			mutate: func(orderRequest *models.OrderRequest) {
				orderRequest.Commission = 301
			},
			expectedErr: ErrInvalidAmount,
		},
		{
			name: "missing product",
			mutate: func(orderRequest *models.OrderRequest) {
				orderRequest.Product = ""
			},
			expectedErr: ErrInvalidName,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			app, storage := newTestApp(t)
			orderRequest := validOrder
			test.mutate(&orderRequest)

			_, err := app.CreateOrder(context.Background(), 1, orderRequest)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				assert.Zero(t, storage.createOrderCalls)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, storage.createOrderCalls)
			}
		})
	}
}

func TestRequestWithdrawalValidation(t *testing.T) {
	tests := []struct {
		name            string
		withdrawRequest models.WithdrawRequest
		expectedErr     error
	}{
		{
			name:            "valid withdrawal",
			withdrawRequest: models.WithdrawRequest{Amount: 50, Phone: "+201234567890"},
		},
		{
			name:            "below minimum",
			withdrawRequest: models.WithdrawRequest{Amount: 49.99, Phone: "+201234567890"},
			expectedErr:     ErrInvalidAmount,
		},
		{
			name:            "payout phone must be egyptian",
			withdrawRequest: models.WithdrawRequest{Amount: 50, Phone: "+966512345678"},
			expectedErr:     ErrInvalidPhone,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			app, storage := newTestApp(t)

			_, err := app.RequestWithdrawal(context.Background(), 1, test.withdrawRequest)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				assert.Zero(t, storage.withdrawalCalls)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, storage.withdrawalCalls)
			}
		})
	}
}
