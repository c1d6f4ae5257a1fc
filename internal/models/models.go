package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

const (
	CountrySaudiArabia = "Saudi Arabia"
	CountryUAE         = "UAE"
)

const DefaultCountry = CountrySaudiArabia

type RegisterRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	StoreName  string `json:"store_name"`
}

type SessionRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type Affiliate struct {
	ID          int     `json:"id"`
	TelegramID  int64   `json:"telegram_id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	StoreName   string  `json:"store_name"`
	Balance     float64 `json:"balance"`
	TotalSales  float64 `json:"total_sales"`
	TotalOrders int     `json:"total_orders"`
}

// AffiliateStats extends the affiliate snapshot with the confirmed-order
// count for the admin statistics view.
type AffiliateStats struct {
	Affiliate
	ConfirmedOrders int `json:"confirmed_orders"`
}

type OrderRequest struct {
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Product       string  `json:"product"`
	ProductCode   string  `json:"product_code,omitempty"`
	Price         float64 `json:"price"`
	Commission    float64 `json:"commission"`
}

type Order struct {
	ID            int         `json:"id"`
	AffiliateID   int         `json:"affiliate_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	City          string      `json:"city"`
	Country       string      `json:"country"`
	Product       string      `json:"product"`
	ProductCode   string      `json:"product_code,omitempty"`
	Price         float64     `json:"price"`
	Commission    float64     `json:"commission"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

type WithdrawRequest struct {
	Amount float64 `json:"amount"`
	Phone  string  `json:"phone"`
}

type Withdrawal struct {
	ID          int              `json:"id"`
	AffiliateID int              `json:"affiliate_id"`
	Amount      float64          `json:"amount"`
	Phone       string           `json:"phone"`
	Status      WithdrawalStatus `json:"status"`
	RequestedAt time.Time        `json:"requested_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}

type BalanceInfo struct {
	Current     float64 `json:"current"`
	TotalSales  float64 `json:"total_sales"`
	TotalOrders int     `json:"total_orders"`
}

// OrderFilter narrows order listings; zero values mean "no constraint".
type OrderFilter struct {
	AffiliateID int
	Status      OrderStatus
	From        time.Time
	To          time.Time
}

// WithdrawalFilter narrows withdrawal listings; zero values mean "no constraint".
type WithdrawalFilter struct {
	AffiliateID int
	Status      WithdrawalStatus
	From        time.Time
	To          time.Time
}

// LedgerReport is the auditor's view of one affiliate: the stored balance
// against the balance re-derived from confirmed commissions and approved
// withdrawals.
type LedgerReport struct {
	AffiliateID    int
	Balance        float64
	DerivedBalance float64
	ConfirmedTotal float64
	WithdrawnTotal float64
}
