package model

// Auth holds one credential per (user, type) pair. For the oidc type the
// secret stays empty and the provider/subject columns identify the upstream
// account. Meta carries a JSON blob with the email, name and timestamp seen
// at the last login.

const AuthTypeOIDC = "oidc"

type Auth struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       uint   `gorm:"column:user_id;not null"`
	Type         string `gorm:"column:type;not null"`
	Secret       string `gorm:"column:secret"`
	OIDCProvider string `gorm:"column:oidc_provider"`
	OIDCSub      string `gorm:"column:oidc_sub"`
	Meta         string `gorm:"column:meta"` // JSON object
	CreatedAt    int64  `gorm:"column:created_at"`
	UpdatedAt    int64  `gorm:"column:updated_at"`
}

func (Auth) TableName() string {
	return "auth"
}
