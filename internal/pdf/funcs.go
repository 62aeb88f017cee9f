package pdf

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateLayout = "02 Jan 2006"

var printer = message.NewPrinter(language.English)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"money":      formatMoney,
		"formatDate": formatDate,
		"total":      lineTotal,
		"mul": func(a, b any) float64 {
			return toFloat(a) * toFloat(b)
		},
	}
}

// formatMoney renders "USD 1,234.50". Unknown currency codes are printed as given.
func formatMoney(code any, amount any) string {
	label := strings.ToUpper(strings.TrimSpace(fmt.Sprint(code)))
	if unit, err := currency.ParseISO(label); err == nil {
		label = unit.String()
	}
	value := printer.Sprintf("%.2f", toFloat(amount))
	if label == "" || label == "<NIL>" {
		return value
	}
	return label + " " + value
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.Format(dateLayout)
			}
		}
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// lineTotal sums quantity*rate over a list of line items.
func lineTotal(items any) float64 {
	var sum float64
	switch list := items.(type) {
	case []any:
		for _, item := range list {
			if row, ok := item.(map[string]any); ok {
				sum += toFloat(row["quantity"]) * toFloat(row["rate"])
			}
		}
	case []map[string]any:
		for _, row := range list {
			sum += toFloat(row["quantity"]) * toFloat(row["rate"])
		}
	}
	return sum
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	default:
		return 0
	}
}
