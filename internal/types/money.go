// README: Money value object; amounts are whole currency units.
package types

import "fmt"

const CurrencyRUB = "RUB"

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
