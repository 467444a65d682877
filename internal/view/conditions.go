package view

import "strings"

var conditionClasses = map[string]string{
	"01": "clear",
	"02": "partly-cloudy",
	"03": "cloudy",
	"04": "overcast",
	"09": "rain",
	"10": "rain",
	"11": "thunderstorm",
	"13": "snow",
	"50": "mist",
}

const nightGradient = "linear-gradient(135deg, #2d3436, #636e72)"

var dayGradients = map[string]string{
	"01": "linear-gradient(135deg, #74b9ff, #0984e3)",
	"02": "linear-gradient(135deg, #81ecec, #74b9ff)",
	"03": "linear-gradient(135deg, #ddd, #74b9ff)",
	"04": "linear-gradient(135deg, #b2bec3, #636e72)",
	"09": "linear-gradient(135deg, #74b9ff, #0984e3)",
	"10": "linear-gradient(135deg, #74b9ff, #0984e3)",
	"11": "linear-gradient(135deg, #636e72, #2d3436)",
	"13": "linear-gradient(135deg, #ddd, #b2bec3)",
	"50": "linear-gradient(135deg, #ddd, #b2bec3)",
}

func prefix(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

// ConditionClass maps an icon code ("10d") to a CSS class name.
func ConditionClass(code string) string {
	if c, ok := conditionClasses[prefix(code)]; ok {
		return c
	}
	return "default"
}

// Gradient returns the background for an icon code. Codes ending in "d" get
// the day palette; everything else is night. Unknown conditions use clear.
func Gradient(code string) string {
	if !strings.HasSuffix(code, "d") {
		return nightGradient
	}
	if g, ok := dayGradients[prefix(code)]; ok {
		return g
	}
	return dayGradients["01"]
}
