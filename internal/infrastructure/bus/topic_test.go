package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-eventos/internal/infrastructure/bus"
)

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"product.created", "product.created", true},
		{"product.created", "product.updated", false},
		{"product.*", "product.deleted", true},
		{"product.*", "product", false},
		{"approval.request.*", "approval.request.approved", true},
		{"approval.*", "approval.request.approved", false},
		{"approval.#", "approval.request.approved", true},
		{"#", "route.completed", true},
		{"route.#", "route", true},
		{"*.completed", "route.completed", true},
		{"#.failed", "approval.request.failed", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, bus.MatchTopic(c.pattern, c.key), "%s vs %s", c.pattern, c.key)
	}
}
