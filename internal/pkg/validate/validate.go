package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

func PositiveInt(value int) bool {
	return value > 0
}
