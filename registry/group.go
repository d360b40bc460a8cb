package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/minios-linux/lokey/similarity"
)

// GroupMeta is the review metadata of a similarity group.
type GroupMeta struct {
	Members    []string  `yaml:"members,omitempty" json:"members,omitempty"`
	Reason     string    `yaml:"reason" json:"reason"`
	Score      float64   `yaml:"score" json:"score"`
	SourceInfo string    `yaml:"source_info,omitempty" json:"source_info,omitempty"`
	Created    time.Time `yaml:"created" json:"created"`
	Modified   time.Time `yaml:"modified" json:"modified"`
}

// UpsertGroup creates or refreshes the metadata of the group made of
// members. Returns the group key and whether it was created.
func (r *Registry) UpsertGroup(members []string, reason string, score float64, sourceInfo string, now time.Time) (string, bool) {
	key := similarity.GroupKey(members)
	now = now.UTC()
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	if g, ok := r.groups[key]; ok {
		g.Members = sorted
		g.Reason = reason
		g.Score = score
		g.SourceInfo = sourceInfo
		g.Modified = now
		return key, false
	}
	r.groups[key] = &GroupMeta{
		Members:    sorted,
		Reason:     reason,
		Score:      score,
		SourceInfo: sourceInfo,
		Created:    now,
		Modified:   now,
	}
	return key, true
}

// Group returns the metadata stored under a group key.
func (r *Registry) Group(key string) (GroupMeta, bool) {
	g, ok := r.groups[key]
	if !ok {
		return GroupMeta{}, false
	}
	return *g, true
}

// GroupKeys returns all group keys sorted.
func (r *Registry) GroupKeys() []string {
	keys := make([]string, 0, len(r.groups))
	for k := range r.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DismissGroup removes a group's metadata and remembers the dismissal so
// later detections can skip it. Returns false if no such group exists.
func (r *Registry) DismissGroup(key string) bool {
	if _, ok := r.groups[key]; !ok {
		return false
	}
	delete(r.groups, key)
	r.dismissed[key] = true
	return true
}

// Dismissed reports whether the group key was dismissed before.
func (r *Registry) Dismissed(key string) bool {
	return r.dismissed[key]
}

// dropGroupsWith removes groups that mention any removed key. Groups
// saved without a member list fall back to splitting the group key.
func (r *Registry) dropGroupsWith(removed map[string]bool) {
	for key, g := range r.groups {
		members := g.Members
		if len(members) == 0 {
			members = strings.Split(key, similarity.GroupSeparator)
		}
		for _, m := range members {
			if removed[m] {
				delete(r.groups, key)
				break
			}
		}
	}
}
