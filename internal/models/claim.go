package models

import (
	"time"
)

// Claim 一次已确认的发放记录，创建后不再修改或删除
type Claim struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	IP        string    `gorm:"size:64;not null;uniqueIndex:uk_claim_ip" json:"ip"`
	Wallet    string    `gorm:"size:42;not null" json:"wallet"`
	WalletKey string    `gorm:"size:42;not null;uniqueIndex:uk_claim_wallet" json:"-"`
	TxHash    string    `gorm:"size:66;not null;default:''" json:"txHash"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Claim) TableName() string {
	return "claims"
}
