package coach

import "github.com/verte-zerg/neurocursor/internal/model"

// Theme identifies a family of spoken lines.
type Theme int

const (
	// ThemeNone means the coach stays silent.
	ThemeNone Theme = iota
	ThemeHighStress
	ThemeRecovery
	ThemeCalmFocus
)

func (t Theme) String() string {
	switch t {
	case ThemeHighStress:
		return "high_stress"
	case ThemeRecovery:
		return "recovery"
	case ThemeCalmFocus:
		return "calm_focus"
	default:
		return "none"
	}
}

var voiceLines = map[Theme][]string{
	ThemeHighStress: {
		"Your cursor looks a bit tense. Unclench your jaw, let your shoulders drop and take one slow breath in, one long breath out.",
		"I'm seeing faster, less steady movements. Rest your hands on the desk for ten seconds and soften your grip on the mouse.",
		"Micro-stress detected. Look away from the screen, roll your shoulders once or twice, then come back to your work.",
	},
	ThemeRecovery: {
		"Your movements look steadier again. Stay with this softer pace and notice your breathing.",
		"You're back in a calmer focus zone. This is a good time for deep, uninterrupted work.",
		"Cursor patterns are smoother now. Keep your shoulders relaxed and let your breath stay slow.",
	},
	ThemeCalmFocus: {
		"You're in a stable focus window. If possible, mute one distraction and stay with your current task.",
		"Cursor movement looks calm and consistent. This is a great moment for meaningful, concentrated work.",
		"You're in a balanced state. Keep your posture comfortable, and let your breathing stay unforced.",
	},
}

// Lines returns the spoken lines of a theme.
func Lines(theme Theme) []string {
	return voiceLines[theme]
}

// Tip is a wellness card shown next to the live scores.
type Tip struct {
	Title  string
	Body   string
	Action string
}

var highStressTips = []Tip{
	{
		Title:  "60-second nervous system reset",
		Body:   "Small spikes in tension are normal, especially under deadline. A short reset prevents them from stacking into fatigue.",
		Action: "Breathe in for 4 seconds, out for 6, following the expanding circle. Repeat for 5-8 breaths.",
	},
	{
		Title:  "Relax the upper body",
		Body:   "Stress often shows up in the shoulders, neck, jaw and hands during intense screen time.",
		Action: "Drop your shoulders, let your hands rest on the desk and gently unclench your jaw for three slow breaths.",
	},
	{
		Title:  "Eyes & posture check-in",
		Body:   "Rapid, jittery movements can mean scanning emails, chats and tabs all at once.",
		Action: "Use the 20-20-20 rule: every 20 minutes, look 20 feet away for 20 seconds and gently straighten your spine.",
	},
	{
		Title:  "Micro-break for nervous system",
		Body:   "Your nervous system needs short breaks more often than long, rare ones.",
		Action: "Stand up for 30-60 seconds, stretch your arms overhead and let your hands hang at your sides before sitting back down.",
	},
}

var calmTips = []Tip{
	{
		Title:  "Steady focus window",
		Body:   "Your cursor shows a calm, steady pattern - a healthy place for deep or creative work.",
		Action: "Protect this state: silence one notification or close one non-essential tab for the next 20-30 minutes.",
	},
	{
		Title:  "Gentle rhythm",
		Body:   "Smooth movements suggest your nervous system is not currently overloaded.",
		Action: "Keep breathing slowly. Notice if your chair, screen height or wrist position still feel comfortable.",
	},
	{
		Title:  "Sustainable pace",
		Body:   "Short, stable focus blocks with micro-breaks are better for long-term health than pushing through strain.",
		Action: "Decide now when your next small pause will be - for example, in 25 minutes.",
	},
	{
		Title:  "Body awareness",
		Body:   "Digital work is mostly mental, but the body absorbs the load.",
		Action: "Press your feet gently into the floor, lengthen your spine and let your shoulders soften down and back.",
	},
}

// Tips returns the card set for a stress level.
func Tips(level model.StressLevel) []Tip {
	if level == model.StressHigh {
		return highStressTips
	}
	return calmTips
}

// PickTip chooses a card for the given stress level.
func PickTip(c Chooser, level model.StressLevel) Tip {
	return pick(c, Tips(level))
}

// DefaultTip is the card shown before any sample arrives.
func DefaultTip() Tip {
	return calmTips[0]
}

const (
	calibrationStartPrompt = "Starting calibration. For the next few seconds, move your mouse as you normally would."
	recalibrationPrompt    = "Recalibrating to your current style. For the next few seconds, move your mouse as you normally would."
	calibrationDonePrompt  = "Calibration complete. I will now track micro-stress and focus patterns in the background."
)

// CalibrationPrompt is spoken when a calibration is requested. A coach that is
// already active is recalibrating.
func CalibrationPrompt(active bool) string {
	if active {
		return recalibrationPrompt
	}
	return calibrationStartPrompt
}

// CalibrationDonePrompt is spoken once the upstream calibration finishes.
func CalibrationDonePrompt() string {
	return calibrationDonePrompt
}
