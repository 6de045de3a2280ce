// README: Common value objects shared across modules.
package types

type ID string

// Money is an amount in minor units (cents).
type Money struct {
	Amount   int64
	Currency string
}

const DefaultCurrency = "EUR"

func Cents(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}
