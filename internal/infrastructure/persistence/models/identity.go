package models

import (
	"time"

	"github.com/libinsight/backend/internal/domain/identity"
	"github.com/libinsight/backend/internal/domain/shared"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	DisplayName       string              `gorm:"type:varchar(100);not null"`
	Email             string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash      string              `gorm:"type:varchar(255);not null"`
	Status            identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastLoginAt       *time.Time          `gorm:"index"`
	LastLoginIP       string              `gorm:"type:varchar(45)"`
	FailedAttempts    int                 `gorm:"not null;default:0"`
	LockedUntil       *time.Time
	PasswordChangedAt *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		DisplayName:       m.DisplayName,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Status:            m.Status,
		LastLoginAt:       m.LastLoginAt,
		LastLoginIP:       m.LastLoginIP,
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
		PasswordChangedAt: m.PasswordChangedAt,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.DisplayName = u.DisplayName
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Status = u.Status
	m.LastLoginAt = u.LastLoginAt
	m.LastLoginIP = u.LastLoginIP
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.PasswordChangedAt = u.PasswordChangedAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
