package record

// StatusOption is one entry of the fixed status catalogue.
type StatusOption struct {
	Code  string
	Label string
}

// StatusOptions is the catalogue offered when setting a status by hand.
var StatusOptions = []StatusOption{
	{Code: "keine_neuen_patienten", Label: "Keine neuen Patienten"},
	{Code: "keine_videosprechstunde", Label: "Keine Videosprechstunde"},
	{Code: "urlaub", Label: "Urlaub"},
	{Code: "erstgespraech_in_person_nicht_barrierefrei", Label: "Erstgespräch nur in Person, aber nicht behindertengerecht"},
	{Code: "erstgespraech_in_person_barrierefrei", Label: "Erstgespräch in Person ist behindertengerecht"},
	{Code: "online_ohne_in_person_moeglich", Label: "Online-Sprechstunde ohne In-Person-Gespräch möglich"},
}

// LookupStatusOption finds the catalogue entry for code.
func LookupStatusOption(code string) (StatusOption, bool) {
	for _, o := range StatusOptions {
		if o.Code == code {
			return o, true
		}
	}
	return StatusOption{}, false
}

// Status builds a status value from the option. An empty note is stored
// as null.
func (o StatusOption) Status(note string) *Status {
	s := &Status{Code: o.Code, Label: o.Label}
	if note = Norm(note); note != "" {
		s.Note = &note
	}
	return s
}

// StatusLabel returns the label of the record's status, falling back to
// the code for codes that are no longer in the catalogue.
func StatusLabel(r *Record) string {
	if r.Status == nil {
		return ""
	}
	if r.Status.Label != "" {
		return r.Status.Label
	}
	if o, ok := LookupStatusOption(r.Status.Code); ok {
		return o.Label
	}
	return r.Status.Code
}

// StatusNote returns the note of the record's status or "".
func StatusNote(r *Record) string {
	if r.Status == nil || r.Status.Note == nil {
		return ""
	}
	return *r.Status.Note
}
