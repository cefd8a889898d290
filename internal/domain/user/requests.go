package user

// Request bodies accepted by the HTTP edge. Binding tags are enforced by gin's
// validator before the account service sees the values.

type RegisterRequest struct {
	Email       string  `json:"email" binding:"required,email,max=254"`
	Password    string  `json:"password" binding:"required,strongpassword"`
	DisplayName *string `json:"displayName" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,phone"`
	Gender      *string `json:"gender" binding:"omitempty,max=32"`
	Location    *string `json:"location" binding:"omitempty,max=120"`
}

func (r RegisterRequest) Profile() Profile {
	return Profile{
		DisplayName: r.DisplayName,
		PhoneNumber: r.PhoneNumber,
		Gender:      r.Gender,
		Location:    r.Location,
	}
}

// LoginForm follows the OAuth2 password grant: the email travels as username.
type LoginForm struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type ConfirmEmailRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
	Token string `form:"token" json:"token" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest leaves the complexity check to the account service,
// which validates the token first.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UpdateProfileForm is the multipart body of a profile update. The avatar
// file part is read separately.
type UpdateProfileForm struct {
	DisplayName *string `form:"displayName" binding:"omitempty,max=100"`
	PhoneNumber *string `form:"phoneNumber" binding:"omitempty,phone"`
	Gender      *string `form:"gender" binding:"omitempty,max=32"`
	Location    *string `form:"location" binding:"omitempty,max=120"`
}

type AdminCreateRequest struct {
	Email       string  `json:"email" binding:"required,email,max=254"`
	Password    string  `json:"password" binding:"required,strongpassword"`
	DisplayName *string `json:"displayName" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,phone"`
	Gender      *string `json:"gender" binding:"omitempty,max=32"`
	Location    *string `json:"location" binding:"omitempty,max=120"`
	IsAdmin     bool    `json:"isAdmin"`
}

func (r AdminCreateRequest) Profile() Profile {
	return Profile{
		DisplayName: r.DisplayName,
		PhoneNumber: r.PhoneNumber,
		Gender:      r.Gender,
		Location:    r.Location,
	}
}

type AdminUpdateRequest struct {
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	DisplayName *string `json:"displayName" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,phone"`
	Gender      *string `json:"gender" binding:"omitempty,max=32"`
	Location    *string `json:"location" binding:"omitempty,max=120"`
	IsAdmin     *bool   `json:"isAdmin"`
}
