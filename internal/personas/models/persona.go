// Package models holds the persona registry types shared by the registry,
// search, and question-answering services.
package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode"

	dErrors "personas/pkg/domain-errors"
)

// DateLayout is the calendar-date wire format for birth dates.
const DateLayout = "2006-01-02"

// DocumentType enumerates accepted identity documents.
type DocumentType string

const (
	DocumentTarjetaIdentidad DocumentType = "Tarjeta de identidad"
	DocumentCedula           DocumentType = "Cédula"
)

func (d DocumentType) IsValid() bool {
	return d == DocumentTarjetaIdentidad || d == DocumentCedula
}

// Gender enumerates the self-reported gender options.
type Gender string

const (
	GenderMasculino          Gender = "Masculino"
	GenderFemenino           Gender = "Femenino"
	GenderNoBinario          Gender = "No binario"
	GenderPrefieroNoReportar Gender = "Prefiero no reportar"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMasculino, GenderFemenino, GenderNoBinario, GenderPrefieroNoReportar:
		return true
	}
	return false
}

// Date is a calendar date without time of day. The zero Date means unknown.
type Date struct {
	time.Time
}

// NewDate builds a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date. Timestamps with a date prefix are
// accepted and truncated.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// After reports whether d is a later calendar date than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "fecha_nacimiento must be YYYY-MM-DD")
	}
	*d = parsed
	return nil
}

// Record is the registry row as exposed to search and Q&A callers.
type Record struct {
	DocumentType   DocumentType `json:"tipo_documento"`
	DocumentNumber string       `json:"numero_documento"`
	FirstName      string       `json:"primer_nombre"`
	SecondName     *string      `json:"segundo_nombre"`
	Surnames       string       `json:"apellidos"`
	BirthDate      Date         `json:"fecha_nacimiento"`
	Gender         Gender       `json:"genero"`
	Email          string       `json:"correo_electronico"`
	Phone          string       `json:"celular"`
}

// DisplayName is "{primer_nombre} {apellidos}".
func (r Record) DisplayName() string {
	return r.FirstName + " " + r.Surnames
}

// Persona is a stored registry entry.
type Persona struct {
	ID int64 `json:"id"`
	Record
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	digitsOnly   = regexp.MustCompile(`^[0-9]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Validate enforces the registry field invariants.
func (r *Record) Validate() error {
	if !r.DocumentType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "tipo_documento must be 'Tarjeta de identidad' or 'Cédula'")
	}
	if r.DocumentNumber == "" || len(r.DocumentNumber) > 10 {
		return dErrors.New(dErrors.CodeValidation, "numero_documento must have between 1 and 10 characters")
	}
	if !digitsOnly.MatchString(r.DocumentNumber) {
		return dErrors.New(dErrors.CodeValidation, "El número de documento debe contener solo dígitos")
	}
	if err := validateName("primer_nombre", r.FirstName, 30, true); err != nil {
		return err
	}
	if r.SecondName != nil {
		if err := validateName("segundo_nombre", *r.SecondName, 30, false); err != nil {
			return err
		}
	}
	if err := validateName("apellidos", r.Surnames, 60, true); err != nil {
		return err
	}
	if r.BirthDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "fecha_nacimiento is required")
	}
	if !r.Gender.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "genero must be one of 'Masculino', 'Femenino', 'No binario', 'Prefiero no reportar'")
	}
	if !emailPattern.MatchString(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "correo_electronico is not a valid email address")
	}
	if !phonePattern.MatchString(r.Phone) {
		return dErrors.New(dErrors.CodeValidation, "celular must be exactly 10 digits")
	}
	return nil
}

// Normalize trims surrounding whitespace and drops an empty second name.
func (r *Record) Normalize() {
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.Surnames = strings.TrimSpace(r.Surnames)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.SecondName != nil {
		trimmed := strings.TrimSpace(*r.SecondName)
		if trimmed == "" {
			r.SecondName = nil
		} else {
			r.SecondName = &trimmed
		}
	}
}

func validateName(field, v string, max int, required bool) error {
	if required && v == "" {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len([]rune(v)) > max {
		return dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	for _, r := range v {
		if unicode.IsDigit(r) {
			return dErrors.New(dErrors.CodeValidation, "Los nombres no pueden contener números")
		}
	}
	return nil
}
