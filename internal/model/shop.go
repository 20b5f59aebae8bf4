package model

import "time"

// Shop is a row from the local replica of the business database,
// describing one customer store.
type Shop struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	CustomerEmail  string    `db:"customer_email" json:"customer_email"`
	Domain         string    `db:"domain" json:"domain"`
	PlatformDomain string    `db:"platform_domain" json:"platform_domain"`
	ShopOwner      string    `db:"shop_owner" json:"shop_owner"`
	Currency       string    `db:"currency" json:"currency"`
	OwnerID        int64     `db:"owner_id" json:"owner_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Owner is the account that owns one or more shops.
type Owner struct {
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	CompanyName string    `db:"company_name" json:"company_name"`
	SyncLevel   int       `db:"sync_level" json:"sync_level"`
	Currency    string    `db:"currency" json:"currency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StoreInfo is the shop+owner context handed to the AI when drafting a
// reply for a sender that was correlated with a known store.
type StoreInfo struct {
	Name        string
	Domain      string
	SyncMode    string
	Currency    string
	CompanyName string
	Email       string
}
