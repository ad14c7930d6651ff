package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRecord indicates a record failed field validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrEmptyPatch indicates an update carried no fields.
	ErrEmptyPatch = errors.New("at least one field is required to update")
)

// Record is a single residency entry. All attributes are flat strings.
type Record struct {
	ID                string `json:"id"`
	FirstName         string `json:"firstName"`
	MiddleName        string `json:"middleName"`
	LastName          string `json:"lastName"`
	PresentAddress    string `json:"presentAddress"`
	ProvincialAddress string `json:"provincialAddress"`
	LengthStay        string `json:"lengthStay"`
	Sex               string `json:"sex"`
	CivilStatus       string `json:"cStatus"`
	DateOfBirth       string `json:"dob"`
	Age               string `json:"age"`
	PlaceOfBirth      string `json:"pob"`
	Education         string `json:"hea"`
	Religion          string `json:"religion"`
	ContactNumber     string `json:"cNumber"`
	Email             string `json:"email"`
}

type recordField struct {
	name string
	ref  func(*Record) *string
}

// recordFields lists the mutable attributes in their wire names. ID is excluded.
var recordFields = []recordField{
	{"firstName", func(r *Record) *string { return &r.FirstName }},
	{"middleName", func(r *Record) *string { return &r.MiddleName }},
	{"lastName", func(r *Record) *string { return &r.LastName }},
	{"presentAddress", func(r *Record) *string { return &r.PresentAddress }},
	{"provincialAddress", func(r *Record) *string { return &r.ProvincialAddress }},
	{"lengthStay", func(r *Record) *string { return &r.LengthStay }},
	{"sex", func(r *Record) *string { return &r.Sex }},
	{"cStatus", func(r *Record) *string { return &r.CivilStatus }},
	{"dob", func(r *Record) *string { return &r.DateOfBirth }},
	{"age", func(r *Record) *string { return &r.Age }},
	{"pob", func(r *Record) *string { return &r.PlaceOfBirth }},
	{"hea", func(r *Record) *string { return &r.Education }},
	{"religion", func(r *Record) *string { return &r.Religion }},
	{"cNumber", func(r *Record) *string { return &r.ContactNumber }},
	{"email", func(r *Record) *string { return &r.Email }},
}

// Fields flattens the record attributes into a map keyed by wire name.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(recordFields))
	for _, f := range recordFields {
		out[f.name] = *f.ref(&r)
	}
	return out
}

// UnmarshalJSON accepts the id and every attribute as a JSON string or number.
// Unknown keys are ignored.
func (r *Record) UnmarshalJSON(data []byte) error {
	raw, err := decodeScalars(data)
	if err != nil {
		return err
	}
	var rec Record
	if v := raw["id"]; v != nil {
		rec.ID = string(*v)
	}
	for _, f := range recordFields {
		if v := raw[f.name]; v != nil {
			*f.ref(&rec) = string(*v)
		}
	}
	*r = rec
	return nil
}

// RecordFromFields rebuilds a record from stored attributes. Unknown keys are ignored.
func RecordFromFields(id string, fields map[string]string) Record {
	rec := Record{ID: id}
	for _, f := range recordFields {
		if v, ok := fields[f.name]; ok {
			*f.ref(&rec) = v
		}
	}
	return rec
}

// Normalize trims surrounding whitespace from every attribute.
func (r Record) Normalize() Record {
	r.ID = strings.TrimSpace(r.ID)
	for _, f := range recordFields {
		p := f.ref(&r)
		*p = strings.TrimSpace(*p)
	}
	return r
}

// Validate checks that every attribute is present and well formed.
func (r Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ID) == "" {
		missing = append(missing, "id")
	}
	for _, f := range recordFields {
		if strings.TrimSpace(*f.ref(&r)) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	if strings.ContainsAny(r.ID, ":* \t\n") {
		return fmt.Errorf("%w: id contains reserved characters", ErrInvalidRecord)
	}
	return validateAttributes(r.Fields())
}

func validateAttributes(fields map[string]string) error {
	if v, ok := fields["email"]; ok && v != "" {
		if _, err := mail.ParseAddress(v); err != nil {
			return fmt.Errorf("%w: email is not a valid address", ErrInvalidRecord)
		}
	}
	for _, name := range []string{"age", "lengthStay"} {
		v, ok := fields[name]
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative whole number", ErrInvalidRecord, name)
		}
	}
	return nil
}

// RecordPatch carries a partial update. Nil or blank fields are left untouched.
type RecordPatch struct {
	FirstName         *string `json:"firstName"`
	MiddleName        *string `json:"middleName"`
	LastName          *string `json:"lastName"`
	PresentAddress    *string `json:"presentAddress"`
	ProvincialAddress *string `json:"provincialAddress"`
	LengthStay        *string `json:"lengthStay"`
	Sex               *string `json:"sex"`
	CivilStatus       *string `json:"cStatus"`
	DateOfBirth       *string `json:"dob"`
	Age               *string `json:"age"`
	PlaceOfBirth      *string `json:"pob"`
	Education         *string `json:"hea"`
	Religion          *string `json:"religion"`
	ContactNumber     *string `json:"cNumber"`
	Email             *string `json:"email"`
}

type patchField struct {
	name string
	ref  func(*RecordPatch) **string
}

var patchFields = []patchField{
	{"firstName", func(p *RecordPatch) **string { return &p.FirstName }},
	{"middleName", func(p *RecordPatch) **string { return &p.MiddleName }},
	{"lastName", func(p *RecordPatch) **string { return &p.LastName }},
	{"presentAddress", func(p *RecordPatch) **string { return &p.PresentAddress }},
	{"provincialAddress", func(p *RecordPatch) **string { return &p.ProvincialAddress }},
	{"lengthStay", func(p *RecordPatch) **string { return &p.LengthStay }},
	{"sex", func(p *RecordPatch) **string { return &p.Sex }},
	{"cStatus", func(p *RecordPatch) **string { return &p.CivilStatus }},
	{"dob", func(p *RecordPatch) **string { return &p.DateOfBirth }},
	{"age", func(p *RecordPatch) **string { return &p.Age }},
	{"pob", func(p *RecordPatch) **string { return &p.PlaceOfBirth }},
	{"hea", func(p *RecordPatch) **string { return &p.Education }},
	{"religion", func(p *RecordPatch) **string { return &p.Religion }},
	{"cNumber", func(p *RecordPatch) **string { return &p.ContactNumber }},
	{"email", func(p *RecordPatch) **string { return &p.Email }},
}

// UnmarshalJSON accepts each attribute as a JSON string or number. null leaves it unset.
func (p *RecordPatch) UnmarshalJSON(data []byte) error {
	raw, err := decodeScalars(data)
	if err != nil {
		return err
	}
	var patch RecordPatch
	for _, f := range patchFields {
		if v, ok := raw[f.name]; ok && v != nil {
			value := string(*v)
			*f.ref(&patch) = &value
		}
	}
	*p = patch
	return nil
}

// Changes returns the supplied, non-blank fields keyed by wire name.
func (p RecordPatch) Changes() map[string]string {
	out := make(map[string]string)
	for _, f := range patchFields {
		value := *f.ref(&p)
		if value == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*value); trimmed != "" {
			out[f.name] = trimmed
		}
	}
	return out
}

// ValidateChanges checks a change set produced by Changes.
func ValidateChanges(changes map[string]string) error {
	if len(changes) == 0 {
		return ErrEmptyPatch
	}
	return validateAttributes(changes)
}

// Apply returns a copy of r with the changes merged in.
func (r Record) Apply(changes map[string]string) Record {
	for _, f := range recordFields {
		if v, ok := changes[f.name]; ok {
			*f.ref(&r) = v
		}
	}
	return r
}

// SortRecords orders records by ID for stable listings.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
