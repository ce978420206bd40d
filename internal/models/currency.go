package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Currency — закрытое перечисление поддерживаемых валют.
// Нулевое значение — EUR, опорная валюта таблицы курсов.
type Currency uint8

const (
	// EUR — евро, опорная валюта.
	EUR Currency = iota
	// USD — доллар США.
	USD
	// PLN — польский злотый.
	PLN
)

var currencyCodes = [...]string{
	EUR: "EUR",
	USD: "USD",
	PLN: "PLN",
}

// Currencies возвращает все поддерживаемые валюты в порядке объявления.
func Currencies() []Currency {
	return []Currency{EUR, USD, PLN}
}

func (c Currency) String() string {
	if int(c) < len(currencyCodes) {
		return currencyCodes[c]
	}
	return fmt.Sprintf("Currency(%d)", uint8(c))
}

// ParseCurrency разбирает ISO-код валюты без учёта регистра.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, known := range currencyCodes {
		if known == code {
			return Currency(i), nil
		}
	}
	return EUR, fmt.Errorf("unknown currency %q", code)
}

// MarshalText кодирует валюту её ISO-кодом.
func (c Currency) MarshalText() ([]byte, error) {
	if int(c) >= len(currencyCodes) {
		return nil, fmt.Errorf("invalid currency %d", uint8(c))
	}
	return []byte(currencyCodes[c]), nil
}

// UnmarshalText отклоняет коды, не входящие в перечисление.
func (c *Currency) UnmarshalText(text []byte) error {
	parsed, err := ParseCurrency(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value реализует driver.Valuer: в БД валюта хранится текстом.
func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan реализует sql.Scanner.
func (c *Currency) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	case nil:
		*c = EUR
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Currency", src)
	}
}
