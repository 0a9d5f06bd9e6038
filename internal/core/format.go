package core

import (
	"strconv"
	"strings"
	"time"
)

// French number formatting separators.
const (
	groupSeparator    = "\u202f" // narrow no-break space between thousands
	currencySeparator = "\u00a0" // no-break space before the symbol
	decimalSeparator  = ","
	euroSymbol        = "€"
)

// DateLayout renders day/month/year hour:minute.
const DateLayout = "02/01/2006 15:04"

// Tone classifies a balance for display.
type Tone string

const (
	ToneDue     Tone = "due"     // owed to the worker
	ToneCredit  Tone = "credit"  // worker was overpaid
	ToneNeutral Tone = "neutral" // settled
)

// FormatCurrency renders an amount the fr-FR way, e.g. "1 234,50 €".
func FormatCurrency(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := strconv.FormatInt(cents/100, 10)
	rem := cents % 100

	var b strings.Builder
	if neg {
		b.WriteString("-")
	}
	for i, r := range euros {
		if i > 0 && (len(euros)-i)%3 == 0 {
			b.WriteString(groupSeparator)
		}
		b.WriteRune(r)
	}
	b.WriteString(decimalSeparator)
	if rem < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(rem, 10))
	b.WriteString(currencySeparator)
	b.WriteString(euroSymbol)
	return b.String()
}

// FormatDate renders t in loc as dd/mm/yyyy hh:mm. A nil loc means UTC.
func FormatDate(t Timestamp, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// BalanceTone maps the sign of a balance to its display tone.
func BalanceTone(m Money) Tone {
	switch {
	case m.Cents > 0:
		return ToneDue
	case m.Cents < 0:
		return ToneCredit
	default:
		return ToneNeutral
	}
}
