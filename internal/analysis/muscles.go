package analysis

import (
	"sort"
	"strings"
)

type muscleGroup struct {
	key     string
	label   string
	muscles []string
}

// catalogue fixes rendering order.
var catalogue = []muscleGroup{
	{key: "upperBody", label: "Upper body", muscles: []string{"shoulders", "chest", "back", "biceps", "triceps"}},
	{key: "core", label: "Core", muscles: []string{"abs", "obliques"}},
	{key: "lowerBody", label: "Lower body", muscles: []string{"quads", "hamstrings", "glutes", "calves"}},
}

// keys inside a group object that describe the group rather than a muscle
var groupFields = map[string]bool{
	"score": true, "overall": true, "average": true, "detail": true, "summary": true,
}

// sameMuscle reports whether key names muscle, ignoring case and a plural s.
func sameMuscle(key, muscle string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	m := strings.ToLower(strings.TrimSpace(muscle))
	if k == "" || m == "" {
		return false
	}
	return k == m || k == strings.TrimSuffix(m, "s") || k+"s" == m
}

// lookup finds muscle in a group object. An exact key wins over a fuzzy one.
func lookup(group node, muscle string) (string, node, bool) {
	m, ok := group.object()
	if !ok {
		return "", node{}, false
	}
	if v, ok := m[muscle]; ok && v != nil {
		return muscle, node{v: v}, true
	}
	for _, k := range group.keys() {
		if sameMuscle(k, muscle) && m[k] != nil {
			return k, node{v: m[k]}, true
		}
	}
	return "", node{}, false
}

// canonicalMuscle maps a free-form muscle name onto the catalogue, or
// returns it unchanged.
func canonicalMuscle(name string) string {
	for _, g := range catalogue {
		for _, m := range g.muscles {
			if sameMuscle(name, m) {
				return m
			}
		}
	}
	return name
}

// muscleRank orders catalogue muscles first, in catalogue order.
func muscleRank(name string) int {
	i := 0
	for _, g := range catalogue {
		for _, m := range g.muscles {
			if m == canonicalMuscle(name) {
				return i
			}
			i++
		}
	}
	return i
}

func sortMuscles(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := muscleRank(names[i]), muscleRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}

var weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var koreanWeekdays = []string{"월", "화", "수", "목", "금", "토", "일"}

func dayRank(day string) int {
	d := strings.ToLower(strings.TrimSpace(day))
	for i, w := range weekdays {
		if d == w || (len(d) >= 3 && strings.HasPrefix(w, d)) {
			return i
		}
	}
	for i, w := range koreanWeekdays {
		if strings.HasPrefix(d, w) {
			return i
		}
	}
	return len(weekdays)
}
