package models

import "time"

type ImageLike struct {
	UserID        string    `json:"userID" gorm:"primaryKey;type:text"`
	ImageURL      string    `json:"imageURL" gorm:"primaryKey;type:text;index"`
	LocationID    string    `json:"locationID" gorm:"type:text;index"`
	BeneficiaryID string    `json:"beneficiaryID" gorm:"type:text"`
	CDate         time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Referral struct {
	ReferredID string    `json:"referredID" gorm:"primaryKey;type:text"`
	ReferrerID string    `json:"referrerID" gorm:"type:text;index;not null"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type PointBalance struct {
	UserID string    `json:"userID" gorm:"primaryKey;type:text"`
	Points float64   `json:"points" gorm:"not null;default:0"`
	MDate  time.Time `json:"mdate" gorm:"autoUpdateTime"`
}
