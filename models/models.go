package models

import "time"

// Product lives in the catalog. Stock is only ever changed through the stock
// guard so every mutation passes the same validation path.
type Product struct {
	ProductID   string    `json:"productId" bson:"productid"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	Stock       int       `json:"stock" bson:"stock"`
	ImagePath   string    `json:"imagePath,omitempty" bson:"imagepath,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedat"`
}

// CartLine is one product inside a cart. Price is a snapshot taken when the
// line was added, not a live link to the catalog.
type CartLine struct {
	ProductID string    `json:"productId" bson:"productid"`
	Name      string    `json:"name" bson:"name"`
	Price     float64   `json:"price" bson:"price"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	AddedAt   time.Time `json:"addedAt" bson:"addedat"`
}

// CartDoc is the persisted shape of a cart: the full line list for one
// identity, written as a whole on every remote sync.
type CartDoc struct {
	UserID    string     `json:"userId" bson:"userid"`
	Items     []CartLine `json:"items" bson:"items"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedat"`
}

// Order statuses.
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusOnDelivery = "On Delivery"
	StatusDelivered  = "Delivered"
	StatusCancelled  = "Cancelled"
)

// OrderItem is a frozen snapshot of a cart line at checkout time. Later cart
// or catalog edits cannot alter a placed order.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productid"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

type Order struct {
	OrderID       string      `json:"orderId" bson:"orderid"`
	UserID        string      `json:"userId,omitempty" bson:"userid,omitempty"`
	Items         []OrderItem `json:"items" bson:"items"`
	Total         float64     `json:"total" bson:"total"`
	Status        string      `json:"status" bson:"status"`
	PaymentMethod string      `json:"paymentMethod,omitempty" bson:"paymentmethod,omitempty"`
	CancelReason  string      `json:"cancelReason,omitempty" bson:"cancelreason,omitempty"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdat"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedat"`
}

type User struct {
	UserID       string    `json:"userid" bson:"userid"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         []string  `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdat"`
	LastLogin    time.Time `json:"lastLogin,omitempty" bson:"lastlogin,omitempty"`
}

type Feedback struct {
	FeedbackID string    `json:"feedbackId" bson:"feedbackid"`
	UserID     string    `json:"userId,omitempty" bson:"userid,omitempty"`
	Email      string    `json:"email,omitempty" bson:"email,omitempty"`
	Message    string    `json:"message" bson:"message"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdat"`
}

// Notice is a user-facing outcome message emitted on cart, checkout and order
// operations. Fire and forget.
type Notice struct {
	Level   string    `json:"level"` // "success", "error", "info"
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}
