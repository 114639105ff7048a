package auth

import "time"

// User is the stored credential record. PasswordHash never leaves this
// package; handlers only ever see the UserInfo projection.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Info returns the sanitized projection of the user.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// UserInfo is the client-facing user record with the password hash omitted.
type UserInfo struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payload is the claim set embedded in both token classes. It is never
// persisted; tokens are verified purely by signature and expiry.
type Payload struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

// TokenPair carries a freshly issued access/refresh token couple.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
