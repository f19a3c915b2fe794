// Package analysis turns AI analysis payloads of any known service version
// into one canonical shape and renders it.
package analysis

import (
	"encoding/json"
	"strconv"
)

// Version identifies the wire shape a payload was decoded from.
type Version int

const (
	VersionUnknown Version = iota
	// V1 payloads carry muscle scores as bare numbers.
	V1
	// V2 payloads carry muscle objects with score/overall/detail.
	V2
	// V3 payloads add ranked weakest/strongest muscles and a weekly plan.
	V3
)

func (v Version) String() string {
	if v == VersionUnknown {
		return "unknown"
	}
	return "v" + strconv.Itoa(int(v))
}

// Score is a number that may be missing from the payload.
type Score struct {
	Value float64
	Valid bool
}

func Of(v float64) Score { return Score{Value: v, Valid: true} }

// String renders a missing score as "-".
func (s Score) String() string {
	if !s.Valid {
		return "-"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Scaled divides the score, e.g. to bring a 0-100 overall score onto the 0-10 grading scale.
func (s Score) Scaled(div float64) Score {
	if !s.Valid || div == 0 {
		return s
	}
	return Of(s.Value / div)
}

// Grade buckets a 0-10 score.
func Grade(s Score) string {
	switch {
	case !s.Valid:
		return "n/a"
	case s.Value >= 8:
		return "excellent"
	case s.Value >= 6:
		return "good"
	case s.Value >= 4:
		return "fair"
	default:
		return "weak"
	}
}

type MuscleScore struct {
	Muscle string `json:"muscle"`
	Score  Score  `json:"score"`
	Detail string `json:"detail,omitempty"`
}

type MuscleGroup struct {
	Key     string        `json:"key"`
	Label   string        `json:"label"`
	Score   Score         `json:"score"`
	Muscles []MuscleScore `json:"muscles"`
}

type Measurements struct {
	ShoulderWidth      string `json:"shoulderWidth"`
	ChestCircumference string `json:"chestCircumference"`
	Waist              string `json:"waist"`
	Symmetry           Score  `json:"symmetry"`
}

type Posture struct {
	SpineAlignment  string `json:"spineAlignment"`
	ShoulderBalance string `json:"shoulderBalance"`
	HeadPosition    string `json:"headPosition"`
	Score           Score  `json:"score"`
}

// Note is an optional scored remark such as skin texture.
type Note struct {
	Detail string `json:"detail"`
	Score  Score  `json:"score"`
}

type Exercise struct {
	Name string `json:"name"`
	Sets string `json:"sets,omitempty"`
	Reps string `json:"reps,omitempty"`
	Tip  string `json:"tip,omitempty"`
}

type RankedMuscle struct {
	Rank      int        `json:"rank"`
	Muscle    string     `json:"muscle"`
	Score     Score      `json:"score"`
	Reason    string     `json:"reason,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	Exercises []Exercise `json:"exercises,omitempty"`
}

type DayPlan struct {
	Day  string `json:"day"`
	Plan string `json:"plan"`
}

type Recommendations struct {
	WeeklyPlan   []DayPlan `json:"weeklyPlan,omitempty"`
	NutritionTip string    `json:"nutritionTip,omitempty"`
	RestTip      string    `json:"restTip,omitempty"`
	LifestyleTip string    `json:"lifestyleTip,omitempty"`
	NextGoal     string    `json:"nextGoal,omitempty"`
	FocusMuscles []string  `json:"focusMuscles,omitempty"`
}

// Analysis is the canonical single-photo result. OverallScore is on a
// 0-100 scale, every other score on 0-10.
type Analysis struct {
	Version             Version         `json:"version"`
	OverallScore        Score           `json:"overallScore"`
	Confidence          Score           `json:"confidence"`
	BodyType            string          `json:"bodyType"`
	BodyTypeDescription string          `json:"bodyTypeDescription"`
	Summary             string          `json:"summary"`
	Measurements        *Measurements   `json:"measurements,omitempty"`
	Posture             *Posture        `json:"posture,omitempty"`
	Texture             *Note           `json:"texture,omitempty"`
	Groups              []MuscleGroup   `json:"groups"`
	Weakest             []RankedMuscle  `json:"weakest,omitempty"`
	Strongest           []RankedMuscle  `json:"strongest,omitempty"`
	Recommendations     Recommendations `json:"recommendations"`
}

// Change is a signed delta such as "+12%". Text keeps the service's wording.
type Change struct {
	Text  string `json:"text"`
	Value Score  `json:"value"`
}

// Direction is 1 for growth, -1 for loss and 0 when flat or unknown.
func (c Change) Direction() int {
	switch {
	case !c.Value.Valid || c.Value.Value == 0:
		return 0
	case c.Value.Value > 0:
		return 1
	default:
		return -1
	}
}

type MuscleChange struct {
	Muscle        string `json:"muscle"`
	Before        string `json:"before"`
	After         string `json:"after"`
	ChangePercent Change `json:"changePercent"`
	Detail        string `json:"detail,omitempty"`
}

type TrendMuscle struct {
	Muscle        string     `json:"muscle"`
	ChangePercent Change     `json:"changePercent"`
	Detail        string     `json:"detail,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Exercises     []Exercise `json:"exercises,omitempty"`
}

type BodyComposition struct {
	FatChange    string `json:"fatChange"`
	MuscleChange string `json:"muscleChange"`
	Detail       string `json:"detail"`
}

// Comparison is the canonical before/after result.
type Comparison struct {
	Version         Version          `json:"version"`
	ChangeScore     Score            `json:"changeScore"`
	BeforeScore     Score            `json:"beforeScore"`
	AfterScore      Score            `json:"afterScore"`
	OverallChange   string           `json:"overallChange"`
	PeriodAnalysis  string           `json:"periodAnalysis"`
	Summary         string           `json:"summary"`
	MuscleChanges   []MuscleChange   `json:"muscleChanges"`
	TopImproved     []TrendMuscle    `json:"topImproved,omitempty"`
	NeedsWork       []TrendMuscle    `json:"needsWork,omitempty"`
	BodyComposition *BodyComposition `json:"bodyComposition,omitempty"`
	Encouragement   string           `json:"encouragement,omitempty"`
	Recommendations Recommendations  `json:"recommendations"`
}

// Result holds whichever of the two kinds a stored payload turned out to be.
type Result struct {
	Kind       string      `json:"type"`
	Analysis   *Analysis   `json:"analysis,omitempty"`
	Comparison *Comparison `json:"comparison,omitempty"`
}
