package mudradesk

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// FormatINR renders an amount with Indian digit grouping: the last
// three integer digits form one group, everything before them pairs up
// (12,34,567.89).
func FormatINR(value any) string {
	amount, ok := toFloat(value)
	if !ok {
		return fmt.Sprintf("%v", value)
	}

	s := strconv.FormatFloat(amount, 'f', 2, 64)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")

	grouped := intPart
	if len(intPart) > 3 {
		head := intPart[:len(intPart)-3]
		tail := intPart[len(intPart)-3:]

		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		grouped = strings.Join(append(groups, tail), ",")
	}

	out := grouped + "." + fracPart
	if negative {
		out = "-" + out
	}
	return out
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// TemplateHelpers returns functions exposed to the view engine.
//
// In templates:
//
//	{{ format_inr(total) }}
//	{{ total|inr }}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"format_inr": FormatINR,
	}
}

var registerFiltersOnce sync.Once

// RegisterTemplateFilters installs the custom pongo2 filters. Safe to
// call more than once; pongo2 panics on duplicate registration.
func RegisterTemplateFilters() {
	registerFiltersOnce.Do(func() {
		pongo2.RegisterFilter("inr", func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			return pongo2.AsValue(FormatINR(in.Interface())), nil
		})
	})
}
