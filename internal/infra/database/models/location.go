package models

import (
	"time"

	"gorm.io/datatypes"
)

type Location struct {
	ID                string                      `json:"id" gorm:"primaryKey;type:text"`
	Name              string                      `json:"name" gorm:"type:text;not null"`
	Description       string                      `json:"description" gorm:"type:text"`
	Latitude          float64                     `json:"latitude"`
	Longitude         float64                     `json:"longitude"`
	Images            datatypes.JSONSlice[string] `json:"images" gorm:"type:jsonb"`
	AllImages         datatypes.JSONSlice[string] `json:"allImages" gorm:"type:jsonb"`
	Security          float64                     `json:"security"`
	Violence          float64                     `json:"violence"`
	Welcoming         float64                     `json:"welcoming"`
	StreetFood        float64                     `json:"streetFood"`
	Restaurants       float64                     `json:"restaurants"`
	Pickpocketing     float64                     `json:"pickpocketing"`
	QualityOfLife     float64                     `json:"qualityOfLife"`
	RatingCount       int                         `json:"ratingCount" gorm:"not null;default:0"`
	CreatedBy         string                      `json:"createdBy" gorm:"type:text;index"`
	CreatedAt         int64                       `json:"createdAt" gorm:"autoCreateTime:false"`
	Verified          bool                        `json:"verified" gorm:"not null;default:false"`
	VerificationCount int                         `json:"verificationCount" gorm:"not null;default:0"`
	CID               string                      `json:"cid" gorm:"type:text"`
	Contributors      []Contributor               `json:"contributors" gorm:"foreignKey:LocationID;references:ID;constraint:OnDelete:CASCADE;"`
	Comments          []Comment                   `json:"comments" gorm:"foreignKey:LocationID;references:ID;constraint:OnDelete:CASCADE;"`
	MDate             time.Time                   `json:"mdate" gorm:"autoUpdateTime"`
}

type Contributor struct {
	ID           int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	LocationID   string  `json:"locationID" gorm:"type:text;index"`
	Position     int     `json:"position"`
	UserID       string  `json:"userID" gorm:"type:text;index"`
	Username     *string `json:"username" gorm:"type:text"`
	IsAnonymous  bool    `json:"isAnonymous"`
	Contribution string  `json:"contribution" gorm:"type:text"`
	CreatedAt    int64   `json:"createdAt" gorm:"autoCreateTime:false"`
}

type Comment struct {
	ID          string  `json:"id" gorm:"primaryKey;type:text"`
	LocationID  string  `json:"locationID" gorm:"type:text;index"`
	UserID      string  `json:"userID" gorm:"type:text;index"`
	Username    *string `json:"username" gorm:"type:text"`
	IsAnonymous bool    `json:"isAnonymous"`
	Text        string  `json:"text" gorm:"type:text"`
	CreatedAt   int64   `json:"createdAt" gorm:"autoCreateTime:false;index"`
	CID         string  `json:"cid" gorm:"type:text"`
}
