package user

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusActive
}

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	HashedPassword string `json:"-"` // never expose hash in JSON

	DisplayName *string `json:"displayName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Location    *string `json:"location,omitempty"`
	AvatarPath  *string `json:"avatarPath,omitempty"`

	IsAdmin bool   `json:"isAdmin"`
	Status  Status `json:"status"`

	ConfirmationToken       *string    `json:"-"`
	ConfirmationTokenExpiry *time.Time `json:"-"`
	ResetToken              *string    `json:"-"`
	ResetTokenExpiry        *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// Profile holds the optional, user-editable fields.
type Profile struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Location    *string `json:"location,omitempty"`
	AvatarPath  *string `json:"avatarPath,omitempty"`
}

// View is the outward representation of a user. Secrets and tokens never leave through it.
type View struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName"`
	PhoneNumber *string   `json:"phoneNumber"`
	Gender      *string   `json:"gender"`
	Location    *string   `json:"location"`
	AvatarPath  *string   `json:"avatarPath"`
	IsAdmin     bool      `json:"isAdmin"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u User) View() View {
	return View{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhoneNumber: u.PhoneNumber,
		Gender:      u.Gender,
		Location:    u.Location,
		AvatarPath:  u.AvatarPath,
		IsAdmin:     u.IsAdmin,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
	}
}
