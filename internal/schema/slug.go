package schema

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// slugFields are the item fields a slug is derived from, in slug order.
var slugFields = []string{"colour.primary", "material.primary", "category.secondary"}

// MissingFieldsError reports which fields prevented slug derivation. The
// caller can fall back to NewToken or prompt for the missing values.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("cannot derive slug: missing %s", strings.Join(e.Fields, ", "))
}

// DeriveSlug builds the human-readable item ID from colour, material, and
// category, e.g. "black-wool-coat". When any source field is empty it
// returns a MissingFieldsError naming every absent field.
func DeriveSlug(item *Item) (string, error) {
	parts := []string{item.Colour.Primary, item.Material.Primary, item.Category.Secondary}

	var missing []string
	for n, p := range parts {
		if strings.TrimSpace(p) == "" {
			missing = append(missing, slugFields[n])
		}
	}
	if len(missing) > 0 {
		return "", &MissingFieldsError{Fields: missing}
	}

	for n, p := range parts {
		parts[n] = Slugify(p)
	}
	return strings.Join(parts, "-"), nil
}

// Slugify lowercases s and collapses every run of non-alphanumeric
// characters to a single hyphen: "Dark Brown" -> "dark-brown".
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}
	return b.String()
}

// NewToken returns a short random hex ID ("a1b2c3d4") for records that
// cannot carry a derived slug: attachments, stores, and items still missing
// their descriptive fields.
func NewToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}

// ItemID returns the preferred ID for a new item: the derived slug when the
// descriptive fields allow it, otherwise a random token.
func ItemID(item *Item) string {
	if slug, err := DeriveSlug(item); err == nil {
		return slug
	}
	return NewToken()
}
