package analysis

import (
	"encoding/json"
	"strings"
	"testing"
)

const v3Payload = `{
	"overallScore": 72,
	"bodyType": "<b>Mesomorph</b>",
	"bodyTypeDescription": "Athletic frame",
	"estimatedMeasurements": {"shoulderWidth": "46cm", "waistEstimate": "80cm", "bodySymmetry": 8},
	"posture": {"spineAlignment": "neutral", "shoulderBalance": "level", "score": 7},
	"muscleAnalysis": {
		"upperBody": {"Shoulder": {"score": 7, "detail": "rounded delts"}, "chest": {"overall": 6}, "forearms": {"score": 5}},
		"core": {"abs": 4, "obliques": {"score": 5}},
		"lowerBody": {"overall": 6.5, "quads": {"score": 7}}
	},
	"weakestMuscles": [
		{"rank": 1, "muscle": "abs", "score": 4, "reason": "low definition",
		 "exercises": ["Plank", {"name": "Hanging leg raise", "sets": 3, "reps": "12", "tip": "slow"}]}
	],
	"strongestMuscles": [{"muscle": "quads", "score": 7, "detail": "well developed"}],
	"recommendations": {"weeklyPlan": {"wednesday": "legs", "monday": "push"}, "nutritionTip": "more protein"}
}`

func TestNormalizeV3(t *testing.T) {
	a := Normalize([]byte(v3Payload))

	if a.Version != V3 {
		t.Errorf("version = %v", a.Version)
	}
	if a.OverallScore != Of(72) {
		t.Errorf("overall = %+v", a.OverallScore)
	}
	if a.BodyType != "Mesomorph" {
		t.Errorf("body type not sanitized: %q", a.BodyType)
	}
	if a.Measurements == nil || a.Measurements.Waist != "80cm" || a.Measurements.Symmetry != Of(8) {
		t.Errorf("measurements = %+v", a.Measurements)
	}

	upper := a.Groups[0]
	if upper.Key != "upperBody" || len(upper.Muscles) != 3 {
		t.Fatalf("upper body = %+v", upper)
	}
	if upper.Muscles[0].Muscle != "shoulders" || upper.Muscles[0].Score != Of(7) || upper.Muscles[0].Detail != "rounded delts" {
		t.Errorf("shoulders = %+v", upper.Muscles[0])
	}
	if upper.Muscles[1].Score != Of(6) {
		t.Errorf("chest via overall = %+v", upper.Muscles[1])
	}
	if upper.Muscles[2].Muscle != "forearms" {
		t.Errorf("uncatalogued muscle = %+v", upper.Muscles[2])
	}
	if upper.Score != Of(6) {
		t.Errorf("upper average = %v", upper.Score)
	}

	core := a.Groups[1]
	if core.Muscles[0].Score != Of(4) || core.Muscles[1].Score != Of(5) {
		t.Errorf("core mixes numbers and objects: %+v", core.Muscles)
	}
	if a.Groups[2].Score != Of(6.5) {
		t.Errorf("explicit group score = %v", a.Groups[2].Score)
	}

	if len(a.Weakest) != 1 || len(a.Weakest[0].Exercises) != 2 {
		t.Fatalf("weakest = %+v", a.Weakest)
	}
	ex := a.Weakest[0].Exercises[1]
	if ex.Name != "Hanging leg raise" || ex.Sets != "3" || ex.Reps != "12" || ex.Tip != "slow" {
		t.Errorf("exercise = %+v", ex)
	}
	plan := a.Recommendations.WeeklyPlan
	if len(plan) != 2 || plan[0].Day != "monday" || plan[1].Day != "wednesday" {
		t.Errorf("weekly plan order = %+v", plan)
	}
}

func TestTextKeepsPunctuation(t *testing.T) {
	a := Normalize([]byte(`{"overallScore": 70, "summary": "Chest & back are <i>strong</i>; it's >70% \"done\""}`))

	want := `Chest & back are strong; it's >70% "done"`
	if a.Summary != want {
		t.Errorf("summary = %q, want %q", a.Summary, want)
	}
	if report := Render(a); !strings.Contains(report, want) {
		t.Errorf("report lost the summary text:\n%s", report)
	}
}

func TestNormalizeDetectsVersion(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Version
	}{
		{"bare numbers", `{"muscleAnalysis":{"upperBody":{"chest":6}}}`, V1},
		{"score objects", `{"muscleAnalysis":{"upperBody":{"chest":{"score":6}}}}`, V2},
		{"rankings", `{"weakestMuscles":[]}`, V3},
		{"explicit wins", `{"version":"v1","weakestMuscles":[{"muscle":"abs"}]}`, V1},
		{"explicit numeric", `{"version":2.1}`, V2},
		{"newer than known", `{"version":5}`, V3},
		{"empty", `{}`, V1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize([]byte(tc.body)).Version; got != tc.want {
				t.Errorf("version = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExplicitV1IgnoresRankings(t *testing.T) {
	a := Normalize([]byte(`{"version":1,"weakestMuscles":[{"muscle":"abs"}],"muscleAnalysis":{"core":{"abs":{"score":3}}}}`))
	if len(a.Weakest) != 0 {
		t.Errorf("v1 adapter read rankings: %+v", a.Weakest)
	}
	if a.Groups[1].Muscles[0].Score.Valid {
		t.Errorf("v1 adapter read an object score: %+v", a.Groups[1].Muscles[0])
	}
}

func TestRenderNeverPanics(t *testing.T) {
	payloads := []string{
		``,
		`null`,
		`{}`,
		`[]`,
		`42`,
		`"text"`,
		`{"overallScore":"n/a","posture":7,"estimatedMeasurements":"none"}`,
		`{"muscleAnalysis":{"upperBody":7,"core":[1,2],"lowerBody":null}}`,
		`{"muscleAnalysis":"x","weakestMuscles":{"a":1},"strongestMuscles":[1,"abs",null]}`,
		`{"weakestMuscles":[{"exercises":"Plank"}],"recommendations":{"weeklyPlan":["a"],"focusMuscles":"abs"}}`,
		`{"overallScore":{"score":80},"texture":"smooth","confidence":{"overall":0.9}}`,
	}
	for _, p := range payloads {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("payload %q panicked: %v", p, r)
				}
			}()
			out := Render(Normalize([]byte(p)))
			if !strings.Contains(out, "Overall score:") {
				t.Errorf("payload %q rendered %q", p, out)
			}
			_ = RenderComparison(NormalizeComparison([]byte(p)))
			_ = NormalizeAny([]byte(p))
		}()
	}
}

func TestEmptyObjectShowsMissingScore(t *testing.T) {
	out := Render(Normalize([]byte(`{}`)))
	if !strings.HasPrefix(out, "Overall score: - (n/a)") {
		t.Errorf("render = %q", out)
	}
}

func TestBareNumberInsteadOfObject(t *testing.T) {
	a := Normalize([]byte(`{"overallScore":{"score":64},"muscleAnalysis":{"upperBody":{"chest":{"score":6}},"core":{"abs":5}}}`))
	if a.OverallScore != Of(64) {
		t.Errorf("overall = %v", a.OverallScore)
	}
	if a.Groups[1].Muscles[0].Score != Of(5) {
		t.Errorf("bare abs = %+v", a.Groups[1].Muscles)
	}
	if !strings.Contains(Render(a), "abs") {
		t.Error("abs missing from report")
	}
}

func TestNormalizeComparison(t *testing.T) {
	c := NormalizeComparison([]byte(`{
		"beforeScore": 60, "afterScore": 66,
		"overallChange": "Visible progress",
		"muscleChanges": {
			"glutes": {"before": "5", "after": "6", "changePercent": "+20%"},
			"Shoulders": {"before": 6, "after": 7, "changePercent": "+16%", "detail": "wider"},
			"abs": "no data"
		},
		"topImproved": [{"muscle": "shoulders", "changePercent": "+16%", "keepDoingExercises": ["Press"]}],
		"needsWork": [{"muscle": "calves", "changePercent": "-5%", "recommendedExercises": [{"name": "Calf raise", "sets": "4", "reps": "15"}]}],
		"bodyComposition": {"fatChange": "-2%", "muscleChange": "+1kg"},
		"recommendations": {"focusMuscles": ["calves"], "nextGoal": "75 points"}
	}`))

	if c.ChangeScore != Of(6) {
		t.Errorf("derived change score = %v", c.ChangeScore)
	}
	if len(c.MuscleChanges) != 2 || c.MuscleChanges[0].Muscle != "Shoulders" || c.MuscleChanges[1].Muscle != "glutes" {
		t.Fatalf("muscle changes = %+v", c.MuscleChanges)
	}
	if c.MuscleChanges[0].Before != "6" || c.MuscleChanges[0].ChangePercent.Direction() != 1 {
		t.Errorf("shoulders = %+v", c.MuscleChanges[0])
	}
	if c.NeedsWork[0].ChangePercent.Direction() != -1 || c.NeedsWork[0].Exercises[0].Name != "Calf raise" {
		t.Errorf("needs work = %+v", c.NeedsWork)
	}
	out := RenderComparison(c)
	for _, want := range []string{"Change: +6", "Before 60 -> after 66", "Calf raise 4x15", "Next goal: 75 points"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestNormalizeAny(t *testing.T) {
	if r := NormalizeAny([]byte(`{"changeScore":3}`)); r.Kind != "compare" || r.Comparison == nil {
		t.Errorf("comparison detected as %+v", r)
	}
	if r := NormalizeAny([]byte(`{"overallScore":70}`)); r.Kind != "single" || r.Analysis == nil {
		t.Errorf("analysis detected as %+v", r)
	}
}

func TestGrade(t *testing.T) {
	cases := map[Score]string{
		Of(9): "excellent", Of(8): "excellent", Of(6): "good", Of(4.5): "fair", Of(1): "weak", {}: "n/a",
	}
	for s, want := range cases {
		if got := Grade(s); got != want {
			t.Errorf("Grade(%v) = %q, want %q", s, got, want)
		}
	}
}

func TestScoreJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Score `json:"a"`
		B Score `json:"b"`
	}{A: Of(7.5)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":7.5,"b":null}` {
		t.Errorf("json = %s", b)
	}
}

func TestSameMuscle(t *testing.T) {
	for _, pair := range [][2]string{{"shoulder", "shoulders"}, {"ABS", "abs"}, {"Biceps", "biceps"}, {"ab", "abs"}} {
		if !sameMuscle(pair[0], pair[1]) {
			t.Errorf("%q should match %q", pair[0], pair[1])
		}
	}
	if sameMuscle("back", "biceps") {
		t.Error("back matched biceps")
	}
}
