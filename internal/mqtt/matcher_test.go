package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternMatches(t *testing.T) {
	cases := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"parking/slot/+/status", "parking/slot/7/status", true},
		{"parking/slot/+/status", "parking/slot/12/status", true},
		{"parking/slot/+/status", "parking/slot/7/8/status", false},
		{"parking/slot/+/status", "parking/slot/status", false},
		{"parking/slot/+/status", "parking/slot//status", false},
		{"parking/#", "parking/anything/at/any/depth", true},
		{"parking/#", "parking/gate/state", true},
		{"parking/#", "parking", true},
		{"parking/#", "garage/gate/state", false},
		{"parking/gate/state", "parking/gate/state", true},
		{"parking/gate/state", "parking/gate/state/extra", false},
		{"parking/gate/state", "parking/gate", false},
		{"parking/voucher/check", "parking/voucher/check", true},
		{"+/+/+", "parking/gate/state", true},
		{"+", "parking", true},
		{"+", "parking/gate", false},
	}
	for _, tc := range cases {
		p := CompilePattern(tc.filter)
		assert.Equal(t, tc.want, p.Matches(tc.topic), "filter %q topic %q", tc.filter, tc.topic)
	}
}

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()

	var slotTopics []string
	var gateHits int
	r.Register("parking/slot/+/status", func(topic string, _ []byte) {
		slotTopics = append(slotTopics, topic)
	})
	r.Register("parking/gate/state", func(_ string, _ []byte) {
		gateHits++
	})

	r.Dispatch("parking/slot/3/status", []byte("occupied"))
	r.Dispatch("parking/slot/9/status", []byte("available"))
	r.Dispatch("parking/gate/state", []byte("ready"))
	r.Dispatch("parking/unrelated", []byte("x"))

	assert.Equal(t, []string{"parking/slot/3/status", "parking/slot/9/status"}, slotTopics)
	assert.Equal(t, 1, gateHits)
}

func TestRouterDispatchMultipleMatches(t *testing.T) {
	r := NewRouter()

	var order []string
	r.Register("parking/#", func(topic string, _ []byte) {
		order = append(order, "wildcard:"+topic)
	})
	r.Register("parking/gate/state", func(topic string, _ []byte) {
		order = append(order, "exact:"+topic)
	})

	r.Dispatch("parking/gate/state", nil)

	assert.Equal(t, []string{"wildcard:parking/gate/state", "exact:parking/gate/state"}, order)
}
