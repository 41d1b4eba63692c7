package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderPrefix       = "<"
	choicePlaceholderSuffix       = ">"
	choiceSeparatorLiteral        = "|"
	choiceUsageEmptyTemplate      = "`%s`"
	choiceUsageFullTemplate       = "`%s` %s"
	invalidChoiceMessageTemplate  = "%s is not a valid argument"
	choiceListSeparatorCharacters = " ,"
)

// InvalidChoiceError reports a token that is not part of the allowed choice set.
type InvalidChoiceError struct {
	Choice string
}

// Error describes the rejected choice.
func (choiceError InvalidChoiceError) Error() string {
	return fmt.Sprintf(invalidChoiceMessageTemplate, choiceError.Choice)
}

// FormatChoiceUsage builds a usage string where the default option is capitalized inside a placeholder.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := buildChoicePlaceholder(defaultChoice, choices)
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

// ParseChoice validates a single value against the allowed choices, case-insensitively.
func ParseChoice(rawValue string, choices []string) (string, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	for _, choice := range choices {
		if normalizedValue == strings.ToLower(choice) {
			return choice, nil
		}
	}
	return "", InvalidChoiceError{Choice: strings.TrimSpace(rawValue)}
}

// ParseChoiceList splits a space (or comma) separated list such as "none rus ros" and validates
// every entry. Duplicates are dropped while preserving the first occurrence order.
func ParseChoiceList(rawValue string, choices []string) ([]string, error) {
	tokens := strings.FieldsFunc(rawValue, func(character rune) bool {
		return strings.ContainsRune(choiceListSeparatorCharacters, character)
	})

	parsedChoices := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		parsedChoice, parseError := ParseChoice(token, choices)
		if parseError != nil {
			return nil, parseError
		}
		if _, duplicate := seen[parsedChoice]; duplicate {
			continue
		}
		seen[parsedChoice] = struct{}{}
		parsedChoices = append(parsedChoices, parsedChoice)
	}

	return parsedChoices, nil
}

func buildChoicePlaceholder(defaultChoice string, choices []string) string {
	highlightedChoices := highlightDefaultChoice(defaultChoice, choices)
	return choicePlaceholderPrefix + strings.Join(highlightedChoices, choiceSeparatorLiteral) + choicePlaceholderSuffix
}

func highlightDefaultChoice(defaultChoice string, choices []string) []string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	highlighted := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))

	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		if len(trimmedChoice) == 0 {
			continue
		}

		normalizedChoice := strings.ToLower(trimmedChoice)
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}

		displayValue := trimmedChoice
		if normalizedChoice == normalizedDefault && len(normalizedChoice) > 0 {
			displayValue = strings.ToUpper(trimmedChoice)
		}

		highlighted = append(highlighted, displayValue)
		seen[normalizedChoice] = struct{}{}
	}

	return highlighted
}
