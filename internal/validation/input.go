package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxScopeOfWorkLength        = 10000
	MaxCancellationPolicyLength = 5000
	MaxReasonLength             = 2000
	MaxMessageLength            = 5000
	MaxExternalLinkLength       = 500
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateTerms проверяет текстовые условия контракта. Пустые значения допустимы.
func ValidateTerms(scopeOfWork, cancellationPolicy string) error {
	if err := ValidateLength("объём работ", strings.TrimSpace(scopeOfWork), 0, MaxScopeOfWorkLength); err != nil {
		return err
	}
	return ValidateLength("условия отмены", strings.TrimSpace(cancellationPolicy), 0, MaxCancellationPolicyLength)
}

// ValidateReason ограничивает длину причины отказа, отмены или запроса правок.
// Обязательность причины проверяет сама операция.
func ValidateReason(reason string) error {
	return ValidateLength("причина", strings.TrimSpace(reason), 0, MaxReasonLength)
}

// ValidateExternalLink проверяет внешнюю ссылку.
func ValidateExternalLink(link string) error {
	linkStr := strings.TrimSpace(link)

	if err := ValidateLength("внешняя ссылка", linkStr, 0, MaxExternalLinkLength); err != nil {
		return err
	}

	// Проверка формата URL
	parsedURL, err := url.Parse(linkStr)
	if err != nil {
		return fmt.Errorf("некорректный формат URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("ссылка должна содержать доменное имя")
	}
	return nil
}

// ValidateDeliveryMessage проверяет сопроводительный текст сдачи. Для ссылок
// это сам адрес, для файлов текст необязателен.
func ValidateDeliveryMessage(deliverableType, message string) error {
	switch strings.ToUpper(strings.TrimSpace(deliverableType)) {
	case "LINK":
		return ValidateExternalLink(message)
	default:
		return ValidateLength("сообщение", strings.TrimSpace(message), 0, MaxMessageLength)
	}
}
