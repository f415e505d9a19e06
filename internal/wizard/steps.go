package wizard

import (
	"regexp"
	"strings"

	"leadterm/internal/currency"
	"leadterm/internal/lead"
)

// Step indexes, 1-based.
const (
	StepContact = iota + 1
	StepPropertyType
	StepProperty
	StepNightlyRate
	StepPlatforms
	StepFurnishing
)

// StepCount is the number of steps; it is also the index of the last step.
const StepCount = StepFurnishing

// StepInfo describes one screen of the wizard.
type StepInfo struct {
	Index int
	Title string
	Hint  string
}

var steps = []StepInfo{
	{Index: StepContact, Title: "Seus dados", Hint: "Como podemos falar com você?"},
	{Index: StepPropertyType, Title: "Tipo de imóvel", Hint: "Qual é o tipo do seu imóvel?"},
	{Index: StepProperty, Title: "Sobre o imóvel", Hint: "Valor estimado e endereço"},
	{Index: StepNightlyRate, Title: "Diária", Hint: "Quanto você espera cobrar por noite?"},
	{Index: StepPlatforms, Title: "Plataformas", Hint: "Onde o imóvel já está anunciado?"},
	{Index: StepFurnishing, Title: "Mobília", Hint: "Como o imóvel está mobiliado?"},
}

// Steps returns the ordered step list.
func Steps() []StepInfo {
	return append([]StepInfo(nil), steps...)
}

// Info returns the description of step i, or false when out of range.
func Info(i int) (StepInfo, bool) {
	if i < 1 || i > StepCount {
		return StepInfo{}, false
	}
	return steps[i-1], true
}

// Rules is the single validation and parsing ruleset of the wizard.
type Rules struct {
	PhoneMinDigits int
	ValueUnit      currency.Unit
	RateUnit       currency.Unit
}

// DefaultPhoneMinDigits accepts a Brazilian area code plus an 8 digit line.
const DefaultPhoneMinDigits = 10

// DefaultRules reads both currency fields as whole units.
func DefaultRules() Rules {
	return Rules{
		PhoneMinDigits: DefaultPhoneMinDigits,
		ValueUnit:      currency.Whole,
		RateUnit:       currency.Whole,
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ValidPhone reports whether s has at least minDigits digits.
func ValidPhone(s string, minDigits int) bool {
	return len(currency.Digits(s)) >= minDigits
}

// Validate reports whether step i is complete for f under rules.
func Validate(i int, f lead.Fields, rules Rules) bool {
	if i < 1 || i > StepCount {
		return false
	}
	return len(Problems(i, f, rules)) == 0
}

// Problems lists what is missing from step i, in field order. The UI shows
// these as hints next to the disabled continue control.
func Problems(i int, f lead.Fields, rules Rules) []string {
	var out []string
	switch i {
	case StepContact:
		if strings.TrimSpace(f.Name) == "" {
			out = append(out, "informe seu nome")
		}
		if !ValidEmail(f.Email) {
			out = append(out, "informe um e-mail válido")
		}
		if !ValidPhone(f.Phone, rules.PhoneMinDigits) {
			out = append(out, "informe um telefone com DDD")
		}
	case StepPropertyType:
		if !f.PropertyType.Valid() {
			out = append(out, "escolha o tipo de imóvel")
		}
	case StepProperty:
		if f.EstimatedValue <= 0 {
			out = append(out, "informe o valor estimado")
		}
		if f.Address.Empty() {
			out = append(out, "selecione o endereço")
		}
	case StepNightlyRate:
		if f.NightlyRate <= 0 {
			out = append(out, "informe a diária desejada")
		}
	case StepPlatforms:
		if len(f.Platforms) == 0 {
			out = append(out, "selecione ao menos uma opção")
		}
	case StepFurnishing:
		if !f.Furnishing.Valid() {
			out = append(out, "escolha o estado da mobília")
		}
	}
	return out
}
