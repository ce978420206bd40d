package models

import "strings"

// Language — язык интерфейса и ответов бота.
type Language string

const (
	LangIT Language = "it"
	LangEN Language = "en"
	LangPL Language = "pl"
)

// DefaultPassword используется, если у пользователя пароль не задан.
const DefaultPassword = "1234"

// ParseLanguage возвращает язык или итальянский по умолчанию.
func ParseLanguage(s string) Language {
	switch l := Language(strings.ToLower(strings.TrimSpace(s))); l {
	case LangIT, LangEN, LangPL:
		return l
	}
	return LangIT
}

// Preferences — пользовательские настройки отображения.
type Preferences struct {
	Currency Currency `json:"currency"`
	Language Language `json:"language"`
}

// User представляет пользователя трекера. Пароль хранится и сравнивается
// в открытом виде: это известная слабость, сохранённая для совместимости.
type User struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Avatar         string      `json:"avatar"`
	Password       string      `json:"password"`
	TelegramChatID string      `json:"telegramChatId,omitempty"`
	Preferences    Preferences `json:"preferences"`
}

// CheckPassword сравнивает пароль с сохранённым значением.
func (u User) CheckPassword(password string) bool {
	return u.Password == password
}

// PreferencesDTO — настройки в том виде, в каком они приходят по сети.
type PreferencesDTO struct {
	Currency string `json:"currency"`
	Language string `json:"language"`
}

// UserDTO используется для приёма профиля из JSON до нормализации.
type UserDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	Avatar         string          `json:"avatar"`
	Password       *string         `json:"password,omitempty"`
	TelegramChatID *string         `json:"telegramChatId,omitempty"`
	Preferences    *PreferencesDTO `json:"preferences,omitempty"`
}

// Sanitize подставляет значения по умолчанию: пароль, валюту EUR и язык it.
// Неизвестная валюта в настройках заменяется на EUR.
func (d UserDTO) Sanitize() User {
	u := User{
		ID:       d.ID,
		Name:     d.Name,
		Avatar:   d.Avatar,
		Password: DefaultPassword,
		Preferences: Preferences{
			Currency: EUR,
			Language: LangIT,
		},
	}
	if d.Password != nil && *d.Password != "" {
		u.Password = *d.Password
	}
	if d.TelegramChatID != nil {
		u.TelegramChatID = strings.TrimSpace(*d.TelegramChatID)
	}
	if d.Preferences != nil {
		if c, err := ParseCurrency(d.Preferences.Currency); err == nil {
			u.Preferences.Currency = c
		}
		u.Preferences.Language = ParseLanguage(d.Preferences.Language)
	}
	return u
}

// DTO возвращает сетевое представление пользователя.
func (u User) DTO() UserDTO {
	password := u.Password
	chatID := u.TelegramChatID
	return UserDTO{
		ID:             u.ID,
		Name:           u.Name,
		Avatar:         u.Avatar,
		Password:       &password,
		TelegramChatID: &chatID,
		Preferences: &PreferencesDTO{
			Currency: u.Preferences.Currency.String(),
			Language: string(u.Preferences.Language),
		},
	}
}

// SeedUsers возвращает пользователей, создаваемых при первом запуске.
func SeedUsers() []User {
	return []User{
		{
			ID:          "user_matteo",
			Name:        "Matteo",
			Avatar:      "https://api.dicebear.com/7.x/avataaars/svg?seed=Matteo",
			Password:    DefaultPassword,
			Preferences: Preferences{Currency: EUR, Language: LangIT},
		},
		{
			ID:          "user_diana",
			Name:        "Diana",
			Avatar:      "https://api.dicebear.com/7.x/avataaars/svg?seed=Diana",
			Password:    DefaultPassword,
			Preferences: Preferences{Currency: PLN, Language: LangPL},
		},
	}
}
