package models

// All 返回需要自动迁移的模型列表
func All() []interface{} {
	return []interface{}{
		&Claim{},
		&RateLimitRecord{},
	}
}
