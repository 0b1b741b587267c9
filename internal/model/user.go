package model

import "time"

// DefaultUserCategory is assigned when a user is created without a category.
const DefaultUserCategory = "member"

// User is a device-tracked account. Devices keeps first-seen order.
type User struct {
	ID        int64      `json:"user_id"`
	Username  string     `json:"username"`
	Category  string     `json:"category"`
	Subteam   string     `json:"subteam"`
	Devices   []string   `json:"devices"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
}

// UserCreate is the POST /api/users body.
type UserCreate struct {
	Username string `json:"username" validate:"required,notblank"`
	Subteam  string `json:"subteam" validate:"required,notblank"`
	Category string `json:"category"`
	Device   string `json:"device"`
}

// CreatedUser is returned after a successful create.
type CreatedUser struct {
	UserID  int64  `json:"userId"`
	Message string `json:"message"`
}

// DeviceLogin is the POST /api/users/login body.
type DeviceLogin struct {
	Username string `json:"username" validate:"required"`
	Device   string `json:"device"`
}

// LoginResult is the user summary returned from a login.
type LoginResult struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Category string `json:"category"`
	Subteam  string `json:"subteam"`
}

// UserVerify is the POST /api/users/verify body. Passwords are not stored
// for regular users; only existence is checked.
type UserVerify struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

// AdminVerify is the POST /api/users/admin/verify body.
type AdminVerify struct {
	AdminPassword string `json:"admin_password" validate:"required"`
}
