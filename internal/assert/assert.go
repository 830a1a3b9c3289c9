package assert

import (
	"fmt"
)

func Length(value string, expected int) {
	if len(value) != expected {
		msg := fmt.Sprintf("assert.Length expected %d actual %d", expected, len(value))
		panic(msg)
	}
}

func NotEmpty(value string) {
	if value == "" {
		panic("assert.NotEmpty got empty string")
	}
}
