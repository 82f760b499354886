package model

type User struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Email      string `gorm:"column:email;not null"`
	Name       string `gorm:"column:name"`
	Nickname   string `gorm:"column:nickname"`
	Avatar     string `gorm:"column:avatar"`
	Roles      string `gorm:"column:roles"` // JSON array
	IsDisabled bool   `gorm:"column:is_disabled;default:false"`
	IsDeleted  bool   `gorm:"column:is_deleted;default:false"`
	IsOIDC     bool   `gorm:"column:is_oidc;default:false"`
	CreatedAt  int64  `gorm:"column:created_at"`
	UpdatedAt  int64  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "user"
}
