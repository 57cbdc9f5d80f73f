package models

import "time"

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	Username     string    `json:"username" gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:text"`
	AuthProvider string    `json:"authProvider" gorm:"type:text;not null"`
	ProfileImage *string   `json:"profileImage" gorm:"type:text"`
	ReferralCode string    `json:"referralCode" gorm:"type:text;uniqueIndex"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
