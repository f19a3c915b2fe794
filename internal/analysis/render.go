package analysis

import (
	"fmt"
	"strings"
)

// Render formats an analysis as a plain-text report. Missing values show as "-".
func Render(a Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall score: %s (%s)\n", a.OverallScore, Grade(a.OverallScore.Scaled(10)))
	if a.Confidence.Valid {
		fmt.Fprintf(&b, "Confidence: %s\n", a.Confidence)
	}
	if a.BodyType != "" {
		fmt.Fprintf(&b, "Body type: %s\n", a.BodyType)
	}
	if a.BodyTypeDescription != "" {
		fmt.Fprintf(&b, "  %s\n", a.BodyTypeDescription)
	}

	if m := a.Measurements; m != nil {
		b.WriteString("\nEstimated measurements\n")
		line(&b, "Shoulder width", m.ShoulderWidth)
		line(&b, "Chest", m.ChestCircumference)
		line(&b, "Waist", m.Waist)
		line(&b, "Symmetry", m.Symmetry.String()+"/10")
	}

	if p := a.Posture; p != nil {
		b.WriteString("\nPosture\n")
		line(&b, "Spine alignment", p.SpineAlignment)
		line(&b, "Shoulder balance", p.ShoulderBalance)
		line(&b, "Head position", p.HeadPosition)
		line(&b, "Score", p.Score.String())
	}

	if t := a.Texture; t != nil {
		b.WriteString("\nTexture\n")
		line(&b, "Detail", t.Detail)
		line(&b, "Score", t.Score.String())
	}

	if hasMuscles(a.Groups) {
		b.WriteString("\nMuscles\n")
		for _, g := range a.Groups {
			if len(g.Muscles) == 0 && !g.Score.Valid {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s/10\n", g.Label, g.Score)
			for _, m := range g.Muscles {
				fmt.Fprintf(&b, "    %-12s %4s/10  %s", m.Muscle, m.Score, Grade(m.Score))
				if m.Detail != "" {
					fmt.Fprintf(&b, "  %s", m.Detail)
				}
				b.WriteByte('\n')
			}
		}
	}

	if len(a.Weakest) > 0 {
		b.WriteString("\nNeeds attention\n")
		for _, m := range a.Weakest {
			fmt.Fprintf(&b, "  #%d %s %s/10\n", m.Rank, m.Muscle, m.Score)
			if m.Reason != "" {
				fmt.Fprintf(&b, "     %s\n", m.Reason)
			}
			exercises(&b, m.Exercises)
		}
	}
	if len(a.Strongest) > 0 {
		b.WriteString("\nStrengths\n")
		for _, m := range a.Strongest {
			fmt.Fprintf(&b, "  %s %s/10\n", m.Muscle, m.Score)
			if m.Detail != "" {
				fmt.Fprintf(&b, "     %s\n", m.Detail)
			}
		}
	}

	recommendations(&b, a.Recommendations)
	if a.Summary != "" {
		fmt.Fprintf(&b, "\nSummary\n  %s\n", a.Summary)
	}
	return b.String()
}

// RenderComparison formats a before/after result as a plain-text report.
func RenderComparison(c Comparison) string {
	var b strings.Builder

	change := c.ChangeScore.String()
	if c.ChangeScore.Valid && c.ChangeScore.Value > 0 {
		change = "+" + change
	}
	fmt.Fprintf(&b, "Change: %s\n", change)
	if c.OverallChange != "" {
		fmt.Fprintf(&b, "  %s\n", c.OverallChange)
	}
	if c.PeriodAnalysis != "" {
		fmt.Fprintf(&b, "  %s\n", c.PeriodAnalysis)
	}
	if c.BeforeScore.Valid || c.AfterScore.Valid {
		fmt.Fprintf(&b, "Before %s -> after %s\n", c.BeforeScore, c.AfterScore)
	}

	if len(c.MuscleChanges) > 0 {
		b.WriteString("\nMuscle changes\n")
		for _, m := range c.MuscleChanges {
			pct := m.ChangePercent.Text
			if pct == "" {
				pct = "0%"
			}
			fmt.Fprintf(&b, "  %-12s %s -> %s  %s %s", m.Muscle, orDash(m.Before), orDash(m.After), pct, arrow(m.ChangePercent))
			if m.Detail != "" {
				fmt.Fprintf(&b, "  %s", m.Detail)
			}
			b.WriteByte('\n')
		}
	}

	if len(c.TopImproved) > 0 {
		b.WriteString("\nMost improved\n")
		for _, m := range c.TopImproved {
			fmt.Fprintf(&b, "  %s %s\n", m.Muscle, m.ChangePercent.Text)
			if m.Detail != "" {
				fmt.Fprintf(&b, "     %s\n", m.Detail)
			}
			exercises(&b, m.Exercises)
		}
	}
	if len(c.NeedsWork) > 0 {
		b.WriteString("\nNeeds work\n")
		for _, m := range c.NeedsWork {
			fmt.Fprintf(&b, "  %s %s\n", m.Muscle, m.ChangePercent.Text)
			if m.Reason != "" {
				fmt.Fprintf(&b, "     %s\n", m.Reason)
			}
			exercises(&b, m.Exercises)
		}
	}

	if bc := c.BodyComposition; bc != nil {
		b.WriteString("\nBody composition\n")
		line(&b, "Fat", bc.FatChange)
		line(&b, "Muscle", bc.MuscleChange)
		if bc.Detail != "" {
			fmt.Fprintf(&b, "  %s\n", bc.Detail)
		}
	}
	if c.Encouragement != "" {
		fmt.Fprintf(&b, "\n%s\n", c.Encouragement)
	}
	recommendations(&b, c.Recommendations)
	if c.Summary != "" {
		fmt.Fprintf(&b, "\nSummary\n  %s\n", c.Summary)
	}
	return b.String()
}

func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s: %s\n", label, orDash(value))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func arrow(c Change) string {
	switch c.Direction() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}

func hasMuscles(groups []MuscleGroup) bool {
	for _, g := range groups {
		if len(g.Muscles) > 0 || g.Score.Valid {
			return true
		}
	}
	return false
}

func exercises(b *strings.Builder, list []Exercise) {
	for _, ex := range list {
		fmt.Fprintf(b, "     - %s", ex.Name)
		if ex.Sets != "" || ex.Reps != "" {
			fmt.Fprintf(b, " %sx%s", orDash(ex.Sets), orDash(ex.Reps))
		}
		if ex.Tip != "" {
			fmt.Fprintf(b, " (%s)", ex.Tip)
		}
		b.WriteByte('\n')
	}
}

func recommendations(b *strings.Builder, r Recommendations) {
	if len(r.WeeklyPlan) == 0 && r.NutritionTip == "" && r.RestTip == "" &&
		r.LifestyleTip == "" && r.NextGoal == "" && len(r.FocusMuscles) == 0 {
		return
	}
	b.WriteString("\nRecommendations\n")
	if r.NextGoal != "" {
		fmt.Fprintf(b, "  Next goal: %s\n", r.NextGoal)
	}
	if len(r.FocusMuscles) > 0 {
		fmt.Fprintf(b, "  Focus: %s\n", strings.Join(r.FocusMuscles, ", "))
	}
	for _, d := range r.WeeklyPlan {
		fmt.Fprintf(b, "  %s: %s\n", d.Day, d.Plan)
	}
	if r.NutritionTip != "" {
		fmt.Fprintf(b, "  Nutrition: %s\n", r.NutritionTip)
	}
	if r.RestTip != "" {
		fmt.Fprintf(b, "  Rest: %s\n", r.RestTip)
	}
	if r.LifestyleTip != "" {
		fmt.Fprintf(b, "  Lifestyle: %s\n", r.LifestyleTip)
	}
}
