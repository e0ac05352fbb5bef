package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DefaultPrefix is the name prefix used when no explicit list is configured
const DefaultPrefix = "shop_bi_"

// Lister enumerates container names
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Discovery decides which containers are monitored: an explicit list when
// one is configured, otherwise every container whose name has the prefix.
type Discovery struct {
	explicit []string
	set      map[string]bool
	prefix   string
}

// NewDiscovery creates a discovery rule. Blank explicit entries are ignored.
func NewDiscovery(explicit []string, prefix string) *Discovery {
	d := &Discovery{prefix: prefix, set: make(map[string]bool)}
	for _, name := range explicit {
		name = strings.TrimSpace(name)
		if name == "" || d.set[name] {
			continue
		}
		d.explicit = append(d.explicit, name)
		d.set[name] = true
	}
	return d
}

// Explicit reports whether an explicit list overrides prefix discovery
func (d *Discovery) Explicit() bool {
	return len(d.explicit) > 0
}

// Prefix returns the discovery prefix
func (d *Discovery) Prefix() string {
	return d.prefix
}

// Match reports whether name is monitored under this rule
func (d *Discovery) Match(name string) bool {
	if d.Explicit() {
		return d.set[name]
	}
	return strings.HasPrefix(name, d.prefix)
}

// Candidates returns the monitored container names. The explicit list is
// returned in configured order without querying the runtime; discovered
// names are sorted.
func (d *Discovery) Candidates(ctx context.Context, lister Lister) ([]string, error) {
	if d.Explicit() {
		out := make([]string, len(d.explicit))
		copy(out, d.explicit)
		return out, nil
	}

	all, err := lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var names []string
	for _, name := range all {
		if d.Match(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
