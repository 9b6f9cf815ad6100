package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestResolve_NamespaceOrder(t *testing.T) {
	cfg := &Config{Modules: map[string]yaml.Node{
		"channel.telegram":  {},
		"custom.thing":      {},
		"unpack.magiskboot": {},
		"gateway.http":      {},
		"history.sqlite":    {},
		"channel.another":   {},
		"audit":             {},
	}}

	want := []string{
		"history.sqlite",
		"unpack.magiskboot",
		"gateway.http",
		"channel.another",
		"channel.telegram",
		"audit",
		"custom.thing",
	}
	if diff := cmp.Diff(want, Resolve(cfg)); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_Empty(t *testing.T) {
	if got := Resolve(&Config{}); len(got) != 0 {
		t.Errorf("Resolve(empty) = %v", got)
	}
}
