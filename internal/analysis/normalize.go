package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Normalize decodes a single-photo payload. It never fails: anything it
// cannot read is left at its zero value.
func Normalize(raw []byte) Analysis {
	root := parse(raw)
	switch detectVersion(root) {
	case V1:
		return adaptV1(root)
	case V2:
		return adaptV2(root)
	default:
		return adaptV3(root)
	}
}

// NormalizeComparison decodes a before/after payload.
func NormalizeComparison(raw []byte) Comparison {
	root := parse(raw)
	c := Comparison{
		Version:        parseVersion(root.get("version")),
		ChangeScore:    root.get("changeScore").num(),
		BeforeScore:    root.get("beforeScore").score(),
		AfterScore:     root.get("afterScore").score(),
		OverallChange:  root.get("overallChange").str(),
		PeriodAnalysis: root.get("periodAnalysis").str(),
		Summary:        root.get("summary").str(),
		Encouragement:  root.get("encouragement").str(),
	}
	if !c.ChangeScore.Valid && c.BeforeScore.Valid && c.AfterScore.Valid {
		c.ChangeScore = Of(c.AfterScore.Value - c.BeforeScore.Value)
	}

	changes := root.get("muscleChanges")
	names := changes.keys()
	sortMuscles(names)
	for _, name := range names {
		d := changes.get(name)
		if _, ok := d.object(); !ok {
			continue
		}
		c.MuscleChanges = append(c.MuscleChanges, MuscleChange{
			Muscle:        sanitize(name),
			Before:        d.get("before").str(),
			After:         d.get("after").str(),
			ChangePercent: changeOf(d.get("changePercent")),
			Detail:        d.get("detail").str(),
		})
	}

	for _, it := range root.get("topImproved").list() {
		c.TopImproved = append(c.TopImproved, TrendMuscle{
			Muscle:        it.get("muscle").str(),
			ChangePercent: changeOf(it.get("changePercent")),
			Detail:        it.get("detail").str(),
			Exercises:     exercisesOf(it.first("keepDoingExercises", "exercises")),
		})
	}
	for _, it := range root.get("needsWork").list() {
		c.NeedsWork = append(c.NeedsWork, TrendMuscle{
			Muscle:        it.get("muscle").str(),
			ChangePercent: changeOf(it.get("changePercent")),
			Reason:        it.get("reason").str(),
			Exercises:     exercisesOf(it.first("recommendedExercises", "exercises")),
		})
	}

	if bc := root.get("bodyComposition"); bc.exists() {
		if _, ok := bc.object(); ok {
			c.BodyComposition = &BodyComposition{
				FatChange:    bc.get("fatChange").str(),
				MuscleChange: bc.get("muscleChange").str(),
				Detail:       bc.get("detail").str(),
			}
		} else if s := bc.str(); s != "" {
			c.BodyComposition = &BodyComposition{Detail: s}
		}
	}
	c.Recommendations = recommendationsOf(root.get("recommendations"))
	return c
}

// NormalizeAny decodes a stored history payload whose kind is not known
// up front.
func NormalizeAny(raw []byte) Result {
	root := parse(raw)
	if isComparison(root) {
		c := NormalizeComparison(raw)
		return Result{Kind: "compare", Comparison: &c}
	}
	a := Normalize(raw)
	return Result{Kind: "single", Analysis: &a}
}

func isComparison(root node) bool {
	for _, k := range []string{"changeScore", "beforeScore", "afterScore", "muscleChanges", "topImproved", "needsWork", "overallChange"} {
		if root.get(k).exists() {
			return true
		}
	}
	return false
}

// detectVersion prefers an explicit version field and falls back to shape.
func detectVersion(root node) Version {
	if v := parseVersion(root.get("version")); v != VersionUnknown {
		return v
	}
	if root.get("weakestMuscles").exists() || root.get("strongestMuscles").exists() ||
		root.path("recommendations", "weeklyPlan").exists() {
		return V3
	}
	muscles := root.get("muscleAnalysis")
	for _, g := range muscles.keys() {
		group := muscles.get(g)
		for _, k := range group.keys() {
			if _, ok := group.get(k).object(); ok {
				return V2
			}
		}
	}
	return V1
}

func parseVersion(n node) Version {
	var f float64
	switch v := n.v.(type) {
	case float64:
		f = v
	case string:
		s := strings.TrimLeft(strings.TrimSpace(v), "vV")
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return VersionUnknown
		}
		f = p
	default:
		return VersionUnknown
	}
	switch {
	case f < 1 || math.IsNaN(f):
		return VersionUnknown
	case f >= 3:
		return V3
	default:
		return Version(int(f))
	}
}

// adaptV1 reads the oldest shape: bare numeric muscle scores and no
// rankings.
func adaptV1(root node) Analysis {
	a := baseAnalysis(root)
	a.Version = V1
	a.Groups = groupsOf(root.get("muscleAnalysis"), func(n node) MuscleScore {
		return MuscleScore{Score: n.num()}
	})
	return a
}

// adaptV2 reads muscle objects with score, overall and detail.
func adaptV2(root node) Analysis {
	a := baseAnalysis(root)
	a.Version = V2
	a.Groups = groupsOf(root.get("muscleAnalysis"), func(n node) MuscleScore {
		return MuscleScore{Score: n.score(), Detail: n.get("detail").str()}
	})
	a.Confidence = root.get("confidence").score()
	if t := root.get("texture"); t.exists() {
		note := Note{Detail: t.first("detail", "description").str(), Score: t.score()}
		if s := t.str(); s != "" {
			note.Detail = s
		}
		a.Texture = &note
	}
	return a
}

// adaptV3 adds ranked muscles and the weekly plan on top of v2.
func adaptV3(root node) Analysis {
	a := adaptV2(root)
	a.Version = V3
	a.Weakest = rankedOf(root.get("weakestMuscles"))
	a.Strongest = rankedOf(root.get("strongestMuscles"))
	a.Recommendations = recommendationsOf(root.get("recommendations"))
	return a
}

func baseAnalysis(root node) Analysis {
	a := Analysis{
		OverallScore:        root.get("overallScore").score(),
		BodyType:            root.get("bodyType").str(),
		BodyTypeDescription: root.get("bodyTypeDescription").str(),
		Summary:             root.get("summary").str(),
	}
	if m := root.get("estimatedMeasurements"); m.exists() {
		if _, ok := m.object(); ok {
			a.Measurements = &Measurements{
				ShoulderWidth:      m.get("shoulderWidth").str(),
				ChestCircumference: m.get("chestCircumference").str(),
				Waist:              m.first("waistCircumference", "waistEstimate").str(),
				Symmetry:           m.get("bodySymmetry").score(),
			}
		}
	}
	if p := root.get("posture"); p.exists() {
		if _, ok := p.object(); ok {
			a.Posture = &Posture{
				SpineAlignment:  p.get("spineAlignment").str(),
				ShoulderBalance: p.get("shoulderBalance").str(),
				HeadPosition:    p.get("headPosition").str(),
				Score:           p.get("score").num(),
			}
		} else if s := p.num(); s.Valid {
			a.Posture = &Posture{Score: s}
		}
	}
	return a
}

// groupsOf walks the catalogue, then appends muscles the catalogue does not
// know. A group with no readable score averages its muscles.
func groupsOf(muscles node, read func(node) MuscleScore) []MuscleGroup {
	out := make([]MuscleGroup, 0, len(catalogue))
	for _, g := range catalogue {
		mg := MuscleGroup{Key: g.key, Label: g.label}
		_, group, ok := lookup(muscles, g.key)
		if !ok {
			out = append(out, mg)
			continue
		}
		mg.Score = group.num()
		if !mg.Score.Valid {
			for _, k := range []string{"score", "overall", "average"} {
				if s := group.get(k).num(); s.Valid {
					mg.Score = s
					break
				}
			}
		}

		seen := map[string]bool{}
		for _, name := range g.muscles {
			key, data, ok := lookup(group, name)
			if !ok {
				continue
			}
			seen[key] = true
			ms := read(data)
			ms.Muscle = name
			mg.Muscles = append(mg.Muscles, ms)
		}
		for _, key := range group.keys() {
			if seen[key] || groupFields[strings.ToLower(key)] {
				continue
			}
			ms := read(group.get(key))
			if !ms.Score.Valid && ms.Detail == "" {
				continue
			}
			ms.Muscle = sanitize(key)
			mg.Muscles = append(mg.Muscles, ms)
		}

		if !mg.Score.Valid {
			mg.Score = average(mg.Muscles)
		}
		out = append(out, mg)
	}
	return out
}

func average(ms []MuscleScore) Score {
	var sum float64
	var n int
	for _, m := range ms {
		if m.Score.Valid {
			sum += m.Score.Value
			n++
		}
	}
	if n == 0 {
		return Score{}
	}
	return Of(math.Round(sum/float64(n)*10) / 10)
}

func rankedOf(n node) []RankedMuscle {
	var out []RankedMuscle
	for i, it := range n.list() {
		rm := RankedMuscle{Rank: i + 1}
		if it.str() != "" {
			rm.Muscle = it.str()
			out = append(out, rm)
			continue
		}
		if r := it.get("rank").num(); r.Valid && r.Value >= 1 {
			rm.Rank = int(r.Value)
		}
		rm.Muscle = it.get("muscle").str()
		rm.Score = it.get("score").score()
		rm.Reason = it.get("reason").str()
		rm.Detail = it.get("detail").str()
		rm.Exercises = exercisesOf(it.get("exercises"))
		out = append(out, rm)
	}
	return out
}

// exercisesOf accepts a list of names, a list of {name, sets, reps, tip}
// objects, a mixture of both, or a single name.
func exercisesOf(n node) []Exercise {
	if s := n.str(); s != "" {
		return []Exercise{{Name: s}}
	}
	var out []Exercise
	for _, it := range n.list() {
		if s := it.str(); s != "" {
			out = append(out, Exercise{Name: s})
			continue
		}
		ex := Exercise{
			Name: it.get("name").str(),
			Sets: it.get("sets").str(),
			Reps: it.get("reps").str(),
			Tip:  it.get("tip").str(),
		}
		if ex.Name != "" {
			out = append(out, ex)
		}
	}
	return out
}

func recommendationsOf(n node) Recommendations {
	r := Recommendations{
		NutritionTip: n.get("nutritionTip").str(),
		RestTip:      n.get("restTip").str(),
		LifestyleTip: n.get("lifestyleTip").str(),
		NextGoal:     n.get("nextGoal").str(),
		FocusMuscles: n.get("focusMuscles").strings(),
	}
	plan := n.get("weeklyPlan")
	days := plan.keys()
	sort.SliceStable(days, func(i, j int) bool {
		ri, rj := dayRank(days[i]), dayRank(days[j])
		if ri != rj {
			return ri < rj
		}
		return days[i] < days[j]
	})
	for _, d := range days {
		text := plan.get(d).str()
		if text == "" {
			text = strings.Join(plan.get(d).strings(), ", ")
		}
		if text == "" {
			continue
		}
		r.WeeklyPlan = append(r.WeeklyPlan, DayPlan{Day: sanitize(d), Plan: text})
	}
	return r
}

func changeOf(n node) Change {
	return Change{Text: n.str(), Value: n.num()}
}
