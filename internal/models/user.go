package models

// User is a merchant account. Payments, subscriptions, and listings hang off
// of it; the directory itself lives in another service.
type User struct {
	BaseModel
	Phone        string `gorm:"size:9;uniqueIndex" json:"phone"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
}
