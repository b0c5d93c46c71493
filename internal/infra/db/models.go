package db

import "time"

type AttestationModel struct {
	TxID            string    `gorm:"column:tx_id;type:uuid;primaryKey"`
	PayloadHash     string    `gorm:"uniqueIndex;not null"`
	RootHash        string    `gorm:"index;not null"`
	RecordCount     int       `gorm:"not null"`
	LeafEncoding    string    `gorm:"not null"`
	AttestationJSON []byte    `gorm:"column:attestation_json;type:bytea;not null"`
	AttestedAt      time.Time `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (AttestationModel) TableName() string {
	return "attestations"
}

type AnchorAttemptModel struct {
	ID             int64   `gorm:"primaryKey"`
	Backend        string  `gorm:"not null"`
	Operation      string  `gorm:"not null"`
	TxID           *string `gorm:"column:tx_id"`
	Status         string  `gorm:"not null"`
	ErrorCode      *string
	PayloadHash    *string `gorm:"index"`
	RootHash       *string
	RecordCount    int       `gorm:"not null"`
	DurationMillis int64     `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (AnchorAttemptModel) TableName() string {
	return "anchor_attempts"
}
