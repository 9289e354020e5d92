package models

import "time"

// BaseModel 定义表公共列；对外以 name 作为标识，自增 id 不出现在 JSON 里
type BaseModel struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
