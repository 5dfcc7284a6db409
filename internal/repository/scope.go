package repository

import (
	"context"

	"gorm.io/gorm"
)

// ownerScope 将查询限定在单个用户的数据上。所有按用户归属的仓库都通过它
// 构造查询，调用方不需要也不应该自己拼 user_id 条件。
type ownerScope struct {
	db     *gorm.DB
	userID uint
}

func (s ownerScope) query(ctx context.Context, m interface{}) *gorm.DB {
	return s.db.WithContext(ctx).Model(m).Where("user_id = ?", s.userID)
}

func (s ownerScope) UserID() uint {
	return s.userID
}
