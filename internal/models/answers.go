package models

import "encoding/json"

// AnswersPayload maps item ids (or crossword entry ids) to answer values.
// Values are kept raw because their shape depends on the item kind:
// choice -> []string of option ids, text -> string, crossword -> string of
// Length characters with spaces for blank cells.
type AnswersPayload map[string]json.RawMessage

// SetChoice stores the selected option ids for a choice item.
func (p AnswersPayload) SetChoice(itemID string, optionIDs []string) {
	raw, _ := json.Marshal(optionIDs)
	p[itemID] = raw
}

// SetText stores the raw text answer for a text item.
func (p AnswersPayload) SetText(itemID, text string) {
	raw, _ := json.Marshal(text)
	p[itemID] = raw
}

// Choice decodes the selected option ids for a choice item. Missing or
// malformed values decode to an empty selection.
func (p AnswersPayload) Choice(itemID string) []string {
	raw, ok := p[itemID]
	if !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

// Text decodes the text answer for a text or crossword-entry item.
func (p AnswersPayload) Text(itemID string) string {
	raw, ok := p[itemID]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Merge overlays other onto p, replacing values item by item. The server
// merges partial saves this way so a client sending only the items it
// touched cannot wipe answers saved earlier.
func (p AnswersPayload) Merge(other AnswersPayload) {
	for id, raw := range other {
		p[id] = raw
	}
}
