package user

import (
	"time"

	"stroke_rehab_backend/internal/common"
)

// User represents the user model in the database. Nullable columns are
// pointers; email, username and google_id are each unique when non-null.
// A user with a nil PasswordHash must carry a non-nil GoogleID: such an
// account can only authenticate through the federated provider.
type User struct {
	common.BaseModel
	Email                    *string     `gorm:"type:varchar(255);uniqueIndex:idx_users_email"`
	Username                 string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_users_username"`
	PasswordHash             *string     `gorm:"type:varchar(255)"`
	FirstName                *string     `gorm:"type:varchar(100)"`
	LastName                 *string     `gorm:"type:varchar(100)"`
	GoogleID                 *string     `gorm:"type:varchar(255);uniqueIndex:idx_users_google_id"`
	Role                     common.Role `gorm:"type:varchar(50);not null;default:'patient'"`
	IsActive                 bool        `gorm:"not null;default:true"`
	IsVerified               bool        `gorm:"not null;default:false"`
	VerificationToken        *string     `gorm:"type:text;index"`
	VerificationTokenExpires *time.Time
	PasswordResetToken       *string `gorm:"type:text;index"`
	PasswordResetExpires     *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// SetVerificationToken sets the token and expiry together; the pair is
// always set or cleared as a unit.
func (u *User) SetVerificationToken(token string, expires time.Time) {
	u.VerificationToken = &token
	u.VerificationTokenExpires = &expires
}

// ClearVerificationToken nulls the token and expiry together.
func (u *User) ClearVerificationToken() {
	u.VerificationToken = nil
	u.VerificationTokenExpires = nil
}

// SetPasswordResetToken sets the reset token and expiry together.
func (u *User) SetPasswordResetToken(token string, expires time.Time) {
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expires
}

// ClearPasswordResetToken nulls the reset token and expiry together.
func (u *User) ClearPasswordResetToken() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}

// Profile is the 1:1 clinical/demographic extension of a User. It is never
// created independently of a user; the database cascades its deletion.
type Profile struct {
	common.BaseModel
	UserID                uint `gorm:"not null;uniqueIndex:idx_user_profiles_user_id"`
	User                  User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	DateOfBirth           *time.Time
	Gender                *string `gorm:"type:varchar(50)"`
	Height                *int
	Weight                *int
	MedicalHistory        *string `gorm:"type:text"`
	Allergies             *string `gorm:"type:text"`
	Medications           *string `gorm:"type:text"`
	EmergencyContactName  *string `gorm:"type:varchar(255)"`
	EmergencyContactPhone *string `gorm:"type:varchar(50)"`
	DoctorName            *string `gorm:"type:varchar(255)"`
	DoctorPhone           *string `gorm:"type:varchar(50)"`
	StrokeDate            *time.Time
	StrokeType            *string `gorm:"type:varchar(100)"`
	AffectedSide          *string `gorm:"type:varchar(50)"`
	MobilityAid           *string `gorm:"type:varchar(100)"`
	TherapyGoals          *string `gorm:"type:text"`
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "user_profiles"
}

// --- DTOs for API requests/responses ---

// RegisterRequest defines the structure for local registration.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required,min=3,max=100"`
	Password  string `json:"password" binding:"required,min=8,max=72"` // bcrypt max is 72 bytes
	FirstName string `json:"first_name,omitempty" binding:"omitempty,max=100"`
	LastName  string `json:"last_name,omitempty" binding:"omitempty,max=100"`
}

// UpdateMeRequest defines the mutable fields of the caller's own account.
type UpdateMeRequest struct {
	Email           *string `json:"email,omitempty" binding:"omitempty,email"`
	FirstName       *string `json:"first_name,omitempty" binding:"omitempty,max=100"`
	LastName        *string `json:"last_name,omitempty" binding:"omitempty,max=100"`
	CurrentPassword *string `json:"current_password,omitempty"`
	NewPassword     *string `json:"new_password,omitempty" binding:"omitempty,min=8,max=72"`
}

// UpdateProfileRequest carries the clinical profile fields; unset fields
// are left untouched.
type UpdateProfileRequest struct {
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Gender                *string    `json:"gender,omitempty"`
	Height                *int       `json:"height,omitempty"`
	Weight                *int       `json:"weight,omitempty"`
	MedicalHistory        *string    `json:"medical_history,omitempty"`
	Allergies             *string    `json:"allergies,omitempty"`
	Medications           *string    `json:"medications,omitempty"`
	EmergencyContactName  *string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone,omitempty"`
	DoctorName            *string    `json:"doctor_name,omitempty"`
	DoctorPhone           *string    `json:"doctor_phone,omitempty"`
	StrokeDate            *time.Time `json:"stroke_date,omitempty"`
	StrokeType            *string    `json:"stroke_type,omitempty"`
	AffectedSide          *string    `json:"affected_side,omitempty"`
	MobilityAid           *string    `json:"mobility_aid,omitempty"`
	TherapyGoals          *string    `json:"therapy_goals,omitempty"`
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID         uint        `json:"id"`
	Email      *string     `json:"email,omitempty"`
	Username   string      `json:"username"`
	FirstName  *string     `json:"first_name,omitempty"`
	LastName   *string     `json:"last_name,omitempty"`
	Role       common.Role `json:"role"`
	IsActive   bool        `json:"is_active"`
	IsVerified bool        `json:"is_verified"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// ToUserResponse converts a User model to a UserResponse DTO. The password
// hash and persisted workflow tokens never leave the service boundary.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// ProfileResponse is the API shape of a user profile.
type ProfileResponse struct {
	ID                    uint       `json:"id"`
	UserID                uint       `json:"user_id"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Gender                *string    `json:"gender,omitempty"`
	Height                *int       `json:"height,omitempty"`
	Weight                *int       `json:"weight,omitempty"`
	MedicalHistory        *string    `json:"medical_history,omitempty"`
	Allergies             *string    `json:"allergies,omitempty"`
	Medications           *string    `json:"medications,omitempty"`
	EmergencyContactName  *string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone,omitempty"`
	DoctorName            *string    `json:"doctor_name,omitempty"`
	DoctorPhone           *string    `json:"doctor_phone,omitempty"`
	StrokeDate            *time.Time `json:"stroke_date,omitempty"`
	StrokeType            *string    `json:"stroke_type,omitempty"`
	AffectedSide          *string    `json:"affected_side,omitempty"`
	MobilityAid           *string    `json:"mobility_aid,omitempty"`
	TherapyGoals          *string    `json:"therapy_goals,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ToProfileResponse converts a Profile model to its API shape.
func ToProfileResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:                    p.ID,
		UserID:                p.UserID,
		DateOfBirth:           p.DateOfBirth,
		Gender:                p.Gender,
		Height:                p.Height,
		Weight:                p.Weight,
		MedicalHistory:        p.MedicalHistory,
		Allergies:             p.Allergies,
		Medications:           p.Medications,
		EmergencyContactName:  p.EmergencyContactName,
		EmergencyContactPhone: p.EmergencyContactPhone,
		DoctorName:            p.DoctorName,
		DoctorPhone:           p.DoctorPhone,
		StrokeDate:            p.StrokeDate,
		StrokeType:            p.StrokeType,
		AffectedSide:          p.AffectedSide,
		MobilityAid:           p.MobilityAid,
		TherapyGoals:          p.TherapyGoals,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}
