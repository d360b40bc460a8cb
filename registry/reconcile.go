package registry

import (
	"fmt"
	"strings"

	"github.com/minios-linux/lokey/source"
)

// Policy decides what happens to keys found in both the old registry and
// a new extraction pass.
type Policy string

const (
	// PolicyKeep leaves Recent alone. New and Missing describe the
	// previous pass, so they are cleared.
	PolicyKeep Policy = "keep"
	// PolicyRecent marks them Recent.
	PolicyRecent Policy = "recent"
	// PolicyClear resets them to None.
	PolicyClear Policy = "clear"
)

// ParsePolicy validates a policy name; empty means PolicyKeep.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyKeep, nil
	case PolicyKeep, PolicyRecent, PolicyClear:
		return p, nil
	}
	return "", fmt.Errorf("unknown reconcile policy %q (valid: keep, recent, clear)", s)
}

// Diff summarizes a reconciliation.
type Diff struct {
	New     []string `json:"new"`
	Missing []string `json:"missing"`
	Kept    []string `json:"kept"`
}

// Reconcile compares a fresh extraction with the registry. Texts only in
// the extraction are added as New, keys not found anymore become Missing,
// and keys in both follow policy. Sources of found keys are replaced by
// the references of this pass; missing keys keep their old ones.
func (r *Registry) Reconcile(found []source.Occurrence, policy Policy) Diff {
	var d Diff
	seen := make(map[string]bool, len(found))

	for _, f := range found {
		if strings.TrimSpace(f.Text) == "" || seen[f.Text] {
			continue
		}
		seen[f.Text] = true

		e, ok := r.entries[f.Text]
		if !ok {
			e = r.insertKey(f.Text)
			e.Sources = source.Merge(nil, f.Refs)
			e.State = StateNew
			d.New = append(d.New, f.Text)
			continue
		}

		e.Sources = source.Merge(nil, f.Refs)
		switch policy {
		case PolicyRecent:
			e.State = StateRecent
		case PolicyClear:
			e.State = StateNone
		default:
			if e.State == StateNew || e.State == StateMissing {
				e.State = StateNone
			}
		}
		d.Kept = append(d.Kept, f.Text)
	}

	for _, k := range r.keys {
		if !seen[k] {
			r.entries[k].State = StateMissing
			d.Missing = append(d.Missing, k)
		}
	}
	return d
}

// Prune removes every Missing key and returns the removed keys.
func (r *Registry) Prune() []string {
	drop := make(map[string]bool)
	var removed []string
	for _, k := range r.keys {
		if r.entries[k].State == StateMissing {
			drop[k] = true
			removed = append(removed, k)
		}
	}
	r.removeKeys(drop)
	r.dropGroupsWith(drop)
	return removed
}
