package models

import "time"

const SettingsID uint = 1

type Promotion struct {
	Image    string `json:"image"`
	Link     string `json:"link"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type Policy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Settings is a single-row table keyed by SettingsID.
type Settings struct {
	ID         uint        `gorm:"primaryKey"      json:"-"`
	Promotions []Promotion `gorm:"serializer:json" json:"promotions"`
	Policies   []Policy    `gorm:"serializer:json" json:"policies"`
	UpdatedAt  time.Time   `                       json:"updated_at"`
}

func All() []any {
	return []any{
		&User{}, &RefreshToken{},
		&Category{}, &Product{}, &Feedback{},
		&CartItem{}, &Favorite{},
		&Order{}, &OrderItem{}, &StatusChange{},
		&Payment{}, &Import{},
		&Settings{},
	}
}
