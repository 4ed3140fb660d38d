package templates

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"
)

// ParseTemplates parses HTML templates from the embedded filesystem.
func ParseTemplates(files ...string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"subtract": func(a, b int) int {
			return a - b
		},
		"thousands": func(v any) string {
			switch n := v.(type) {
			case int:
				return Thousands(int64(n))
			case int64:
				return Thousands(n)
			}
			return fmt.Sprint(v)
		},
		"millions": func(n int64) string {
			return fmt.Sprintf("%.1f millions", float64(n)/1e6)
		},
		"pct": func(v float64, decimals int) string {
			return strconv.FormatFloat(v, 'f', decimals, 64) + "%"
		},
		"dec": func(v float64, decimals int) string {
			return strconv.FormatFloat(v, 'f', decimals, 64)
		},
		"signed": func(v float64) string {
			return fmt.Sprintf("%+.1f%%", v)
		},
		"date": func(t time.Time) string { return t.Format("02/01/2006") },
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "jamais"
			}
			return t.Local().Format("02/01/2006 à 15:04")
		},
	}

	return template.New("").Funcs(funcMap).ParseFS(FS, files...)
}

// Thousands groups digits by three with a space, as French does.
func Thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	return b.String()
}
