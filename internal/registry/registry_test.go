package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorts_farm/internal/common"
)

func TestRegistry_RegisterIfAbsent(t *testing.T) {
	r := NewRegistry[string]()

	ok, err := r.RegisterIfAbsent("p1", "run-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.RegisterIfAbsent("p1", "run-2")
	require.NoError(t, err)
	assert.False(t, ok, "Một project chỉ có một run")
	got, _ := r.Get("p1")
	assert.Equal(t, "run-1", got)

	_, err = r.RegisterIfAbsent("", "x")
	assert.True(t, errors.Is(err, common.ErrRequiredField))
}

func TestRegistry_ClearIf(t *testing.T) {
	r := NewRegistry[string]()
	_, _ = r.RegisterIfAbsent("p2", "run-new")
	_, _ = r.RegisterIfAbsent("p1", "run-1")

	assert.False(t, r.ClearIf("p2", func(v string) bool { return v == "run-old" }), "Run cũ không được xóa entry của run mới")
	assert.True(t, r.Exists("p2"))
	assert.Equal(t, []string{"p1", "p2"}, r.Keys(), "Keys đã sắp xếp")

	assert.True(t, r.ClearIf("p1", func(v string) bool { return v == "run-1" }))
	assert.Equal(t, []string{"p2"}, r.Keys())
}
