package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFunc_Now(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	c := Func(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	assert.False(t, got.Before(before))
}
