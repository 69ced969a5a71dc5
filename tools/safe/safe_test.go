package safe

import (
	"errors"
	"sync"
	"testing"

	"GymChat/tools/errs"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert.NoError(t, Run(func() error { return nil }))

	want := errors.New("x")
	assert.Equal(t, want, Run(func() error { return want }))

	err := Run(func() error { panic("boom") })
	assert.True(t, errors.Is(err, errs.ErrInternalServer))
}

func TestSafeGoRecovers(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	SafeGo("test", func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()
}

func TestMustNotNil(t *testing.T) {
	var p *int
	assert.Panics(t, func() { MustNotNil(p, "p") })
	assert.Panics(t, func() { MustNotNil(nil, "nil") })
	assert.NotPanics(t, func() { MustNotNil(1, "int") })
}
