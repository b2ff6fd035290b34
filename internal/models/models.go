package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin    = "Admin"
	RoleCustomer = "Customer"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Username       string    `gorm:"uniqueIndex;not null"  json:"username"`
	Email          string    `gorm:"uniqueIndex;not null"  json:"email"`
	PasswordHash   string    `gorm:"not null;default:''"   json:"-"`
	EmailConfirmed bool      `gorm:"default:false"         json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`

	Roles  []Role      `gorm:"many2many:user_roles" json:"roles"`
	Claims []UserClaim `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
}

type UserClaim struct {
	ID     uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null"     json:"user_id"`
	Type   string    `gorm:"not null;index:idx_claim_key" json:"type"`
	Value  string    `gorm:"not null"                     json:"value"`
}

// RefreshToken holds the single active refresh token of a user. Save is an
// upsert keyed by user, so a second login silently replaces the first
// session's token.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"       json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null"           json:"-"`
	ExpiresAt time.Time `gorm:"not null"                       json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"not null"                 json:"name"`
	Description   string    `json:"description"`
	Price         float64   `gorm:"not null"                 json:"price"`
	PriceType     string    `gorm:"default:proyecto"         json:"price_type"`
	Category      string    `json:"category"`
	Provider      string    `json:"provider"`
	Rating        float64   `gorm:"default:0"                json:"rating"`
	ReviewCount   int       `gorm:"default:0"                json:"review_count"`
	CompletedJobs int       `gorm:"default:0"                json:"completed_jobs"`
	DeliveryTime  string    `json:"delivery_time"`
	ImageURL      string    `json:"image_url"`
	Verified      bool      `gorm:"default:false"            json:"verified"`
	Available     bool      `gorm:"default:true"             json:"available"`
	// JSON-encoded list, e.g. ["Español","Inglés"]
	Languages string    `gorm:"default:'[]'" json:"languages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"user_id"`
	OrderDate   time.Time   `gorm:"not null"                 json:"order_date"`
	TotalAmount float64     `gorm:"not null"                 json:"total_amount"`
	OrderItems  []OrderItem `json:"order_items"`
}

type OrderItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint `gorm:"index;not null"           json:"order_id"`
	ServiceID uint `gorm:"not null"                 json:"service_id"`
	Quantity  int  `gorm:"not null"                 json:"quantity"`
	// unit price at purchase time, kept even if the service changes later
	Price float64 `gorm:"not null" json:"price"`
}
