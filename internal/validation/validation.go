package validation

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/domain/common"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func invalid(msg string) error {
	return common.E(common.KindValidation, "%s", msg)
}

// ValidateRequired valida que un campo no esté vacío
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(fieldName + " is required")
	}
	return nil
}

// ValidateMinLength valida la longitud mínima de un string
func ValidateMinLength(value string, minLength int, fieldName string) error {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < minLength {
		return invalid(fieldName + " must be at least " + strconv.Itoa(minLength) + " characters long")
	}
	return nil
}

// ValidateMaxLength valida la longitud máxima de un string
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return invalid(fieldName + " must be at most " + strconv.Itoa(maxLength) + " characters long")
	}
	return nil
}

// ParseUUID valida y convierte un identificador recibido por la API
func ParseUUID(value, fieldName string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, invalid(fieldName + " must be a valid UUID")
	}
	return id, nil
}

// ValidateEmail valida el formato de un email. Vacío es válido: el campo es opcional.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email must have a valid format")
	}
	return nil
}

// ValidateDateRange valida que una fecha esté en el rango correcto
func ValidateDateRange(startDate, endDate time.Time) error {
	if startDate.IsZero() || endDate.IsZero() {
		return invalid("start date and end date are required")
	}

	if endDate.Before(startDate) {
		return invalid("end date must be after start date")
	}

	return nil
}

// ValidateNotInPast rejects a start date more than a day old
func ValidateNotInPast(startDate time.Time) error {
	if startDate.Before(time.Now().Add(-24 * time.Hour)) {
		return invalid("start date cannot be in the past")
	}
	return nil
}

// ElectionValidation contiene validaciones específicas para elecciones
type ElectionValidation struct{}

// ValidateTitle valida el título de una elección
func (v ElectionValidation) ValidateTitle(title string) error {
	if err := ValidateRequired(title, "title"); err != nil {
		return err
	}
	if err := ValidateMinLength(title, 3, "title"); err != nil {
		return err
	}
	return ValidateMaxLength(title, 200, "title")
}

// ValidateDescription valida la descripción de una elección
func (v ElectionValidation) ValidateDescription(description string) error {
	return ValidateMaxLength(description, 2000, "description")
}

func (v ElectionValidation) ValidateEligibleVoters(n int64) error {
	if n < 0 {
		return invalid("eligible_voters cannot be negative")
	}
	return nil
}

// ListValidation contiene validaciones para listas de candidatos
type ListValidation struct{}

func (v ListValidation) ValidateName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	if err := ValidateMinLength(name, 2, "name"); err != nil {
		return err
	}
	return ValidateMaxLength(name, 120, "name")
}

// ValidateColor accepts an empty value, which means the default color
func (v ListValidation) ValidateColor(color string) error {
	if color != "" && !hexColor.MatchString(color) {
		return invalid("color must be a #rrggbb hex value")
	}
	return nil
}

// CandidateValidation contiene validaciones para candidatos
type CandidateValidation struct{}

func (v CandidateValidation) ValidateFullName(name string) error {
	if err := ValidateRequired(name, "full_name"); err != nil {
		return err
	}
	if err := ValidateMinLength(name, 2, "full_name"); err != nil {
		return err
	}
	return ValidateMaxLength(name, 160, "full_name")
}

func (v CandidateValidation) ValidateEmail(email string) error {
	if err := ValidateMaxLength(email, 255, "email"); err != nil {
		return err
	}
	return ValidateEmail(email)
}
