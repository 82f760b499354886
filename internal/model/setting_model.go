package model

type Setting struct {
	ID          string `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name"`
	Description string `gorm:"column:description"`
	Meta        string `gorm:"column:meta"` // JSON object
}

func (Setting) TableName() string {
	return "setting"
}
